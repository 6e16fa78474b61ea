// Package rules persists per-shop allow/block rules in a document store.
package rules

import (
	"strings"
	"time"
)

// List types. A rule lives on exactly one list.
const (
	ListAllow = "allowlist"
	ListBlock = "blocklist"
)

// Rule types. Values are matched exactly against these categories.
const (
	TypeIP      = "IP Address"
	TypeCountry = "Country"
	TypeEmail   = "Email"
)

// ValidType reports whether t is a known rule type.
func ValidType(t string) bool {
	return t == TypeIP || t == TypeCountry || t == TypeEmail
}

// AccessRule is a single allow/block entry for a shop. At most one rule
// exists per (shop, listType, type, value) tuple, enforced by a
// pre-insert existence check rather than a store constraint.
type AccessRule struct {
	ID        string    `json:"id"`
	Shop      string    `json:"shop"`
	ListType  string    `json:"listType"`
	Type      string    `json:"type"`
	Value     string    `json:"value"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// typeSlug flattens a rule type into a key segment, "IP Address" to "ip-address".
func typeSlug(t string) string {
	return strings.ReplaceAll(strings.ToLower(t), " ", "-")
}
