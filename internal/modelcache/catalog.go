package modelcache

import "strings"

// CatalogEntry describes a well-known whisper.cpp model.
type CatalogEntry struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	SizeLabel   string `json:"sizeLabel"`
	Description string `json:"description"`
}

// EnglishOnly reports whether the model was trained on English only.
func (e CatalogEntry) EnglishOnly() bool {
	return strings.HasSuffix(e.Name, ".en")
}

var catalog = []CatalogEntry{
	{Name: "tiny.en", Label: "Tiny (English)", SizeLabel: "~75 MB", Description: "Fastest, English-only model."},
	{Name: "tiny", Label: "Tiny (Multilingual)", SizeLabel: "~75 MB", Description: "Fastest multilingual model."},
	{Name: "base.en", Label: "Base (English)", SizeLabel: "~142 MB", Description: "Balanced speed/quality, English-only."},
	{Name: "base", Label: "Base (Multilingual)", SizeLabel: "~142 MB", Description: "Balanced speed/quality, multilingual."},
	{Name: "small.en", Label: "Small (English)", SizeLabel: "~466 MB", Description: "Higher quality, English-only."},
	{Name: "small", Label: "Small (Multilingual)", SizeLabel: "~466 MB", Description: "Higher quality multilingual model."},
	{Name: "medium.en", Label: "Medium (English)", SizeLabel: "~1.5 GB", Description: "High quality, English-only."},
	{Name: "medium", Label: "Medium (Multilingual)", SizeLabel: "~1.5 GB", Description: "High quality multilingual model."},
	{Name: "large-v2", Label: "Large v2", SizeLabel: "~2.9 GB", Description: "Very high quality multilingual model."},
	{Name: "large-v3", Label: "Large v3", SizeLabel: "~2.9 GB", Description: "Latest large multilingual model."},
	{Name: "large-v3-turbo", Label: "Large v3 Turbo", SizeLabel: "~1.6 GB", Description: "Faster large-v3 variant."},
}

// Catalog returns the well-known models in display order.
func Catalog() []CatalogEntry {
	out := make([]CatalogEntry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by model name.
func Lookup(name string) (CatalogEntry, bool) {
	for _, entry := range catalog {
		if entry.Name == name {
			return entry, true
		}
	}
	return CatalogEntry{}, false
}
