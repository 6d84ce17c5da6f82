package similar

import (
	"strconv"
	"strings"

	chromem "github.com/philippgille/chromem-go"

	"github.com/stixly/stixly/internal/api"
)

// Metadata keys stored with every indexed set.
const (
	metaSetID    = "set_id"
	metaName     = "name"
	metaTitle    = "title"
	metaAuthorID = "author_id"
	metaCategory = "categories"
)

// Match is one similarity hit.
type Match struct {
	SetID      int64    `json:"set_id"`
	Name       string   `json:"name"`
	Title      string   `json:"title"`
	AuthorID   int64    `json:"author_id,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Similarity float32  `json:"similarity"`
}

// describe builds the text that gets embedded for a set: its title, the
// name without the bot suffix, category names and sticker emojis.
func describe(set api.StickerSet) string {
	var b strings.Builder
	b.WriteString(set.Title)

	name := set.Name
	if i := strings.LastIndex(name, "_by_"); i > 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, "_", " ")
	if name != "" && !strings.EqualFold(name, set.Title) {
		b.WriteString(". ")
		b.WriteString(name)
	}

	for _, c := range set.Categories {
		b.WriteString(". ")
		b.WriteString(c.Name)
	}

	seen := make(map[string]bool)
	var emojis []string
	for _, st := range set.Stickers() {
		if st.Emoji != "" && !seen[st.Emoji] {
			seen[st.Emoji] = true
			emojis = append(emojis, st.Emoji)
		}
	}
	if len(emojis) > 0 {
		b.WriteString(". ")
		b.WriteString(strings.Join(emojis, " "))
	}
	return b.String()
}

func categoryKeys(set api.StickerSet) []string {
	keys := make([]string, 0, len(set.Categories))
	for _, c := range set.Categories {
		keys = append(keys, c.Key)
	}
	return keys
}

func toDocument(set api.StickerSet) chromem.Document {
	id := strconv.FormatInt(set.ID, 10)
	return chromem.Document{
		ID:      id,
		Content: describe(set),
		Metadata: map[string]string{
			metaSetID:    id,
			metaName:     set.Name,
			metaTitle:    set.Title,
			metaAuthorID: strconv.FormatInt(set.AuthorID, 10),
			metaCategory: strings.Join(categoryKeys(set), ","),
		},
	}
}

func toMatch(r chromem.Result) Match {
	id, _ := strconv.ParseInt(r.Metadata[metaSetID], 10, 64)
	author, _ := strconv.ParseInt(r.Metadata[metaAuthorID], 10, 64)
	m := Match{
		SetID:      id,
		Name:       r.Metadata[metaName],
		Title:      r.Metadata[metaTitle],
		AuthorID:   author,
		Similarity: r.Similarity,
	}
	if c := r.Metadata[metaCategory]; c != "" {
		m.Categories = strings.Split(c, ",")
	}
	return m
}
