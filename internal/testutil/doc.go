// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing financial fixtures (profiles, transactions).
// They are not intended for production usage.
package testutil
