// Package pathutils normalizes user-supplied repository paths before they reach
// repository discovery or the anonymization service.
package pathutils
