// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package plan keeps a TemplatePlan's section list consistent with its MJML
// source. The MJML string is authoritative: sections are always re-derived
// from the parsed tree, never patched by hand.
package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mailsmithery/internal/mjml"
	"mailsmithery/internal/models"
)

// ErrInvalidPlan is returned when a plan cannot be made consistent.
var ErrInvalidPlan = errors.New("invalid template plan")

// typeAttr optionally declares a section's type in the markup.
const typeAttr = "data-type"

// Normalize makes a freshly generated plan addressable: every top-level
// section gets a unique data-id, the MJML is re-rendered from the tree, and
// the section list is rebuilt from it. Ids the planner put in the section
// list are reused by position when the markup carries none.
func Normalize(p *models.TemplatePlan) (*models.TemplatePlan, error) {
	if strings.TrimSpace(p.MJML) == "" {
		return nil, fmt.Errorf("%w: mjml is empty", ErrInvalidPlan)
	}
	root, err := mjml.Parse(p.MJML)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	out, err := p.Clone()
	if err != nil {
		return nil, err
	}

	blocks := root.Sections()
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: mj-body has no sections", ErrInvalidPlan)
	}

	// Reuse the planner's ids by position, then name whatever is left.
	if len(blocks) == len(p.Sections) {
		for i, b := range blocks {
			if b.ID() != "" || p.Sections[i].ID == "" {
				continue
			}
			b.SetAttr(mjml.IDAttr, p.Sections[i].ID)
			if p.Sections[i].Type.Valid() {
				if _, ok := b.Attr(typeAttr); !ok {
					b.SetAttr(typeAttr, string(p.Sections[i].Type))
				}
			}
		}
	}
	assignIDs(root)
	dedupe(root)

	out.MJML = mjml.Render(root)
	out.Sections = Sections(root, out.Sections)
	return out, nil
}

// dedupe renames repeated data-ids across the whole tree by suffixing
// -2, -3, ... so that every id stays unique.
func dedupe(root *mjml.Node) {
	seen := make(map[string]bool)
	for _, id := range root.IDs() {
		seen[id] = true
	}
	used := make(map[string]bool)
	root.Walk(func(n *mjml.Node) bool {
		if !n.IsElement() {
			return true
		}
		id := n.ID()
		if id == "" {
			return true
		}
		if !used[id] {
			used[id] = true
			return true
		}
		for k := 2; ; k++ {
			candidate := id + "-" + strconv.Itoa(k)
			if !seen[candidate] && !used[candidate] {
				n.SetAttr(mjml.IDAttr, candidate)
				used[candidate] = true
				seen[candidate] = true
				break
			}
		}
		return true
	})
}

// Rebuild names id-less top-level blocks in root and derives the section
// list from the result. Callers render root afterwards so the new ids reach
// the markup.
func Rebuild(root *mjml.Node, prev []models.TemplateSection) []models.TemplateSection {
	assignIDs(root)
	return Sections(root, prev)
}

// assignIDs gives each top-level block without a data-id the first free
// "<type>-<n>" id.
func assignIDs(root *mjml.Node) {
	taken, _ := root.Index()
	counters := make(map[models.SectionType]int)
	for _, b := range root.Sections() {
		if b.ID() != "" {
			continue
		}
		st := sectionType(b, "")
		for {
			counters[st]++
			id := fmt.Sprintf("%s-%d", st, counters[st])
			if _, ok := taken[id]; !ok {
				b.SetAttr(mjml.IDAttr, id)
				taken[id] = b
				break
			}
		}
	}
}

// Sections derives the ordered section list from a parsed document. Blocks
// without a data-id are not addressable and are left out. Props of sections
// whose id already existed in prev are kept, with the block's current MJML
// attributes written over them.
func Sections(root *mjml.Node, prev []models.TemplateSection) []models.TemplateSection {
	byID := make(map[string]models.TemplateSection, len(prev))
	for _, s := range prev {
		byID[s.ID] = s
	}

	blocks := root.Sections()
	out := make([]models.TemplateSection, 0, len(blocks))
	for _, b := range blocks {
		id := b.ID()
		if id == "" {
			continue
		}
		old := byID[id]
		props := make(map[string]any, len(old.Props))
		for k, v := range old.Props {
			props[k] = v
		}
		for k, v := range attributeProps(b) {
			props[k] = v
		}
		out = append(out, models.TemplateSection{
			ID:    id,
			Type:  sectionType(b, old.Type),
			Props: props,
		})
	}
	return out
}

// SyncSections replaces the plan's markup with authoritative MJML returned by an
// external editor and rebuilds the section list from it. Blocks the editor
// added without an id are named like Normalize does.
func SyncSections(p *models.TemplatePlan, authoritative string) (*models.TemplatePlan, error) {
	root, err := mjml.Parse(authoritative)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if _, dups := root.Index(); len(dups) > 0 {
		return nil, fmt.Errorf("%w: duplicate data-id %q", ErrInvalidPlan, dups[0])
	}
	out, err := p.Clone()
	if err != nil {
		return nil, err
	}
	out.Sections = Rebuild(root, out.Sections)
	out.MJML = mjml.Render(root)
	return out, nil
}

// CheckConsistent verifies that the section list matches the markup: same
// ids, same order, no duplicates anywhere in the tree.
func CheckConsistent(p *models.TemplatePlan) error {
	root, err := mjml.Parse(p.MJML)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if _, dups := root.Index(); len(dups) > 0 {
		return fmt.Errorf("%w: duplicate data-id %q", ErrInvalidPlan, dups[0])
	}
	for i, b := range root.Sections() {
		if b.ID() == "" {
			return fmt.Errorf("%w: <%s> at position %d has no data-id", ErrInvalidPlan, b.Tag, i)
		}
	}
	derived := Sections(root, nil)
	if len(derived) != len(p.Sections) {
		return fmt.Errorf("%w: %d sections listed, %d in mjml", ErrInvalidPlan, len(p.Sections), len(derived))
	}
	for i := range derived {
		if derived[i].ID != p.Sections[i].ID {
			return fmt.Errorf("%w: section %d is %q in list, %q in mjml", ErrInvalidPlan, i, p.Sections[i].ID, derived[i].ID)
		}
	}
	return nil
}

// sectionType resolves the type of a block: explicit data-type first, then
// the previous type, then the id prefix ("hero-1" -> hero), else content.
func sectionType(b *mjml.Node, prev models.SectionType) models.SectionType {
	if v, ok := b.Attr(typeAttr); ok && models.SectionType(v).Valid() {
		return models.SectionType(v)
	}
	if prev.Valid() {
		return prev
	}
	if id := b.ID(); id != "" {
		prefix, _, _ := strings.Cut(id, "-")
		if st := models.SectionType(prefix); st.Valid() {
			return st
		}
	}
	if b.Tag == "mj-hero" {
		return models.SectionHero
	}
	return models.SectionContent
}

func attributeProps(b *mjml.Node) map[string]any {
	props := make(map[string]any)
	for _, a := range b.Attrs {
		if a.Name == mjml.IDAttr || a.Name == typeAttr {
			continue
		}
		props[a.Name] = a.Value
	}
	return props
}
