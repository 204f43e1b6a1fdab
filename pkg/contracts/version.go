// Package contracts defines the shared contracts between sitekit's
// internal layers and external API consumers.
package contracts

// APIVersion is the current API contract version.
const APIVersion = "v1"
