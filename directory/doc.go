// Package directory groups the goIdentity.UserDirectory implementations:
// memory (tests and single-process demos), sqlite (embedded deployments) and
// postgres (pgxpool). The directorytest sub-package holds the shared
// behavioral suite each implementation runs.
package directory
