package services

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parishlabs/discern/models"
)

// FilterAll is the inactive value for the category and tag filters.
const FilterAll = "all"

// CollectionFilter is the dashboard's three independent filters. Text
// is a case-insensitive substring match over content, category, tags
// and source title; Category and Tag are exact matches. Active filters
// combine with logical AND. Empty or "all" deactivates a filter.
type CollectionFilter struct {
	Text     string
	Category string
	Tag      string
}

// CollectionService computes filtered views and exports over a note
// store. It never mutates anything; deletes and edits go through the
// research service.
type CollectionService struct {
	stores *DomainStores
}

func NewCollectionService(stores *DomainStores) *CollectionService {
	return &CollectionService{stores: stores}
}

// matchesText checks the free-text filter against every searchable
// field of a note.
func matchesText(note models.Note, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	if strings.Contains(strings.ToLower(note.Content), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(note.Category), needle) {
		return true
	}
	if note.Metadata != nil {
		if strings.Contains(strings.ToLower(note.Metadata.SourceTitle), needle) {
			return true
		}
		for _, tag := range note.Metadata.Tags {
			if strings.Contains(strings.ToLower(tag), needle) {
				return true
			}
		}
	}
	return false
}

func matchesFilter(note models.Note, filter CollectionFilter) bool {
	if !matchesText(note, filter.Text) {
		return false
	}
	if filter.Category != "" && filter.Category != FilterAll && note.Category != filter.Category {
		return false
	}
	if filter.Tag != "" && filter.Tag != FilterAll && !note.HasTag(filter.Tag) {
		return false
	}
	return true
}

// View returns the filtered gallery for a domain: matching notes in
// category order (categories sorted, notes chronological within each),
// plus the category and tag vocabularies for the filter selectors.
func (c *CollectionService) View(domain string, filter CollectionFilter) (*models.CollectionResponse, error) {
	noteStore, err := c.stores.For(domain)
	if err != nil {
		return nil, err
	}
	mapping := noteStore.Mapping()

	categories := sortedCategories(mapping)
	tagSet := map[string]bool{}
	var notes []models.Note
	for _, category := range categories {
		for _, note := range mapping[category] {
			if note.Metadata != nil {
				for _, tag := range note.Metadata.Tags {
					tagSet[tag] = true
				}
			}
			if matchesFilter(note, filter) {
				notes = append(notes, note)
			}
		}
	}

	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	return &models.CollectionResponse{
		Count:      len(notes),
		Notes:      notes,
		Categories: categories,
		Tags:       tags,
	}, nil
}

// Export renders the full note set as a plain-text summary grouped by
// category, each note a bullet with its tags and creation date. It is a
// pure projection with no side effects on the store.
func (c *CollectionService) Export(domain string, now time.Time) (string, error) {
	noteStore, err := c.stores.For(domain)
	if err != nil {
		return "", err
	}
	mapping := noteStore.Mapping()

	var b strings.Builder
	fmt.Fprintf(&b, "RESEARCH SUMMARY - %s\n", domain)
	fmt.Fprintf(&b, "Generated: %s\n", now.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Total notes: %d\n", noteStore.TotalCount())

	for _, category := range sortedCategories(mapping) {
		fmt.Fprintf(&b, "\n== %s ==\n", category)
		for _, note := range mapping[category] {
			line := strings.ReplaceAll(strings.TrimSpace(note.Content), "\n", " ")
			fmt.Fprintf(&b, "- %s", line)
			if note.Metadata != nil && len(note.Metadata.Tags) > 0 {
				fmt.Fprintf(&b, " (tags: %s)", strings.Join(note.Metadata.Tags, ", "))
			}
			fmt.Fprintf(&b, " [%s]\n", note.Timestamp.UTC().Format("2006-01-02"))
		}
	}
	return b.String(), nil
}

func sortedCategories(mapping models.NoteMapping) []string {
	categories := make([]string, 0, len(mapping))
	for category := range mapping {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
