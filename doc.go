// Package main provides the entry point for Domus-Admin, a multi-tenant
// residential-building management application. Tenants report issues, log
// landlord communications and access building documents, while building
// administrators manage buildings, units, tenancies and fine-grained
// permissions through a web interface built on the Fiber framework with
// gorm for data persistence.
package main
