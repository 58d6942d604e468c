package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for event documents.
// Text arrives pre-folded, so the standard analyzer is enough and no
// language stemming is applied.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameField)

	locField := bleve.NewTextFieldMapping()
	locField.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("localization", locField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = standard.Name
	descField.Store = false
	docMapping.AddFieldMappingsAt("description", descField)

	// Filters. Keyword keeps "PUBLIC" and "CREATED" as single exact terms.
	for _, field := range []string{"id", "access", "state"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(field, fm)
	}

	// Display copies are stored only.
	for _, field := range []string{"display_name", "display_localization"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Index = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	startField := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("fixed_start", startField)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
