// Package services contains the business logic behind the HTTP
// layer: content pages, contact submissions, the user directory and
// process health. Services return sentinel errors; transport maps
// them onto the REST dispatch taxonomy.
package services
