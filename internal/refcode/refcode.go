// Package refcode generates short, unambiguous reference codes for support
// conversations (e.g. issue codes like "ISS-7KQ4M2XR"). Codes are drawn from
// crypto/rand over an alphabet without easily confused characters.
package refcode

import (
	"crypto/rand"
)

// alphabet excludes 0/O, 1/I/L and U/V to keep codes readable over the phone.
var alphabet = []byte("23456789ABCDEFGHJKMNPQRSTWXYZ")

// CodeLen is the number of random characters in a reference code.
const CodeLen = 8

// New returns a new reference code with the given prefix, e.g. "ISS".
func New(prefix string) string {
	return prefix + "-" + randomString(CodeLen)
}

// randomString draws length characters from the alphabet using rejection
// sampling to avoid modulo bias.
func randomString(length int) string {
	clen := len(alphabet)
	maxAccepted := 255 - (256 % clen)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("refcode: error reading random bytes: " + err.Error())
		}

		for _, rb := range buf {
			if int(rb) > maxAccepted {
				continue
			}

			out = append(out, alphabet[int(rb)%clen])
			if len(out) == length {
				return string(out)
			}
		}
	}
}
