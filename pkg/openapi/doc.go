// Package openapi turns the request body of an OpenAPI 3 operation into a
// standalone JSON schema the form engine can normalize. Documents are parsed
// with kin-openapi; the returned schema keeps the authored property order
// and carries the component schemas it uses under "definitions".
package openapi
