package ytdlp

import "strings"

const androidUserAgent = "Mozilla/5.0 (Linux; Android 10; K) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"

// Variant is one negotiation identity used against the extraction source.
// Variants differ in success likelihood per source, so callers try them in
// a configured order.
type Variant struct {
	Name         string
	PlayerClient string
	UserAgent    string
}

var builtinVariants = map[string]Variant{
	"android_creator": {Name: "android_creator", PlayerClient: "android_creator", UserAgent: androidUserAgent},
	"android":         {Name: "android", PlayerClient: "android", UserAgent: androidUserAgent},
	"ios":             {Name: "ios", PlayerClient: "ios"},
	"web":             {Name: "web", PlayerClient: "web"},
	"default":         {Name: "default"},
}

// DefaultChain is the fallback order used when the configuration names none.
func DefaultChain() []Variant {
	return []Variant{builtinVariants["android_creator"], builtinVariants["android"]}
}

// ChainFromNames resolves configured variant names into a fallback chain.
// Unknown names become bare variants whose name doubles as the player client,
// so new yt-dlp client identities work without a code change.
func ChainFromNames(names []string) []Variant {
	if len(names) == 0 {
		return DefaultChain()
	}
	chain := make([]Variant, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if variant, ok := builtinVariants[name]; ok {
			chain = append(chain, variant)
			continue
		}
		chain = append(chain, Variant{Name: name, PlayerClient: name})
	}
	if len(chain) == 0 {
		return DefaultChain()
	}
	return chain
}
