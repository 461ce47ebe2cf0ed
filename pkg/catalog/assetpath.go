package catalog

import (
	"strconv"
	"strings"
)

// AssetsToken stands for the asset base URL in stored code, content, CSS,
// and icon URLs. It is expanded on fetch so stored data stays portable.
const AssetsToken = "@@ASSETS@@"

// ImagePath returns the tokenized directory holding a category's images.
func ImagePath(categoryID int64) string {
	return AssetsToken + "/images/" + strconv.FormatInt(categoryID, 10) + "/"
}

// ExpandAssets replaces AssetsToken with baseURL.
func ExpandAssets(s, baseURL string) string {
	if s == "" {
		return s
	}
	return strings.ReplaceAll(s, AssetsToken, strings.TrimSuffix(baseURL, "/"))
}

// CollapseAssets turns baseURL back into AssetsToken.
func CollapseAssets(s, baseURL string) string {
	base := strings.TrimSuffix(baseURL, "/")
	if s == "" || base == "" {
		return s
	}
	return strings.ReplaceAll(s, base, AssetsToken)
}

// ImagePathRemapper rewrites category image references after categories
// were renumbered. All pairs are applied in one pass, so a chain such as
// 1->2, 2->3 does not cascade.
type ImagePathRemapper struct {
	r *strings.Replacer
}

// NewImagePathRemapper builds a remapper from old to new category ids.
func NewImagePathRemapper(ids map[int64]int64) *ImagePathRemapper {
	var pairs []string
	for oldID, newID := range ids {
		if oldID != newID {
			pairs = append(pairs, ImagePath(oldID), ImagePath(newID))
		}
	}
	if len(pairs) == 0 {
		return &ImagePathRemapper{}
	}
	return &ImagePathRemapper{r: strings.NewReplacer(pairs...)}
}

// Remap rewrites s.
func (m *ImagePathRemapper) Remap(s string) string {
	if m.r == nil || s == "" {
		return s
	}
	return m.r.Replace(s)
}
