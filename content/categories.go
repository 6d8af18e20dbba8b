// Package content defines the content-pipeline collaborator interface, the
// category catalog and response caching.
package content

import "strings"

// Free categories are served without payment.
var freeCategories = map[string]bool{
	"rwa":          true,
	"macro_events": true,
	"virtuals":     true,
}

// Category aliases map convenience names onto canonical category names.
var categoryAliases = map[string]string{
	"bitcoin":  "btc",
	"ethereum": "eth",
	"solana":   "sol",
	"ai":       "ai_agents",
	"agents":   "ai_agents",
	"macro":    "macro_events",
	"pow":      "proof_of_work",
	"mining":   "proof_of_work",
	"meme":     "memecoins",
	"stable":   "stablecoins",
	"nft":      "nfts",
}

// CategoryInfo describes one category for the catalog listing.
type CategoryInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Free        bool     `json:"free"`
}

// Catalog lists every supported category.
var Catalog = []CategoryInfo{
	{Name: "btc", Aliases: []string{"bitcoin"}, Description: "Bitcoin news and updates"},
	{Name: "eth", Aliases: []string{"ethereum"}, Description: "Ethereum ecosystem"},
	{Name: "sol", Aliases: []string{"solana"}, Description: "Solana ecosystem"},
	{Name: "base", Aliases: nil, Description: "Base chain news"},
	{Name: "defi", Aliases: nil, Description: "DeFi protocols and updates"},
	{Name: "ai_agents", Aliases: []string{"ai", "agents"}, Description: "AI agents and automation"},
	{Name: "rwa", Aliases: nil, Description: "Real World Assets tokenization", Free: true},
	{Name: "liquidity", Aliases: nil, Description: "DEX liquidity and trading"},
	{Name: "macro_events", Aliases: []string{"macro"}, Description: "Regulation and institutional news", Free: true},
	{Name: "proof_of_work", Aliases: []string{"pow", "mining"}, Description: "Mining and PoW chains"},
	{Name: "memecoins", Aliases: []string{"meme"}, Description: "Meme tokens"},
	{Name: "stablecoins", Aliases: []string{"stable"}, Description: "Stablecoin news"},
	{Name: "nfts", Aliases: []string{"nft"}, Description: "NFT marketplace and collections"},
	{Name: "gaming", Aliases: nil, Description: "Crypto gaming"},
	{Name: "launchpad", Aliases: nil, Description: "Token launches"},
	{Name: "virtuals", Aliases: nil, Description: "Virtuals Protocol", Free: true},
	{Name: "trends", Aliases: nil, Description: "Trending topics"},
	{Name: "other", Aliases: nil, Description: "Everything else"},
}

var validCategories = func() map[string]bool {
	m := make(map[string]bool, len(Catalog))
	for _, c := range Catalog {
		m[c.Name] = true
	}
	return m
}()

// Normalize lower-cases a category name and resolves aliases.
func Normalize(category string) string {
	c := strings.ToLower(category)
	if canonical, ok := categoryAliases[c]; ok {
		return canonical
	}
	return c
}

// IsValid reports whether the (normalized) category is supported.
func IsValid(category string) bool {
	return validCategories[category]
}

// IsFree reports whether the (normalized) category is served without payment.
func IsFree(category string) bool {
	return freeCategories[category]
}

// FreeCategories returns the canonical names of the free categories.
func FreeCategories() []string {
	return []string{"rwa", "macro_events", "virtuals"}
}
