package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for track documents.
//
// Track names and artists are short and multilingual, so text fields use the
// simple analyzer (lower-cased letter runs, no stemming).
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = simple.Name

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields ---

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = simple.Name
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	artistFieldMapping := bleve.NewTextFieldMapping()
	artistFieldMapping.Analyzer = simple.Name
	artistFieldMapping.Store = true
	artistFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("artist", artistFieldMapping)

	// Comments hold free-form DJ notes; searchable, not stored
	commentsFieldMapping := bleve.NewTextFieldMapping()
	commentsFieldMapping.Analyzer = simple.Name
	commentsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("comments", commentsFieldMapping)

	// --- Keyword fields ---

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	tagsFieldMapping := bleve.NewTextFieldMapping()
	tagsFieldMapping.Analyzer = keyword.Name
	tagsFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("tags", tagsFieldMapping)

	trackTypeFieldMapping := bleve.NewTextFieldMapping()
	trackTypeFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("track_type", trackTypeFieldMapping)

	// --- Numeric fields ---

	bpmFieldMapping := bleve.NewNumericFieldMapping()
	bpmFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("bpm", bpmFieldMapping)

	totalTimeFieldMapping := bleve.NewNumericFieldMapping()
	totalTimeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("total_time", totalTimeFieldMapping)

	dateAddedFieldMapping := bleve.NewNumericFieldMapping()
	docMapping.AddFieldMappingsAt("date_added", dateAddedFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
