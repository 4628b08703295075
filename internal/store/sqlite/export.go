// ABOUTME: Export functionality (supplemented feature), adapted from the teacher's export.go for HSG/TKG data
package sqlite

import (
	"context"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harper/cortexmem/internal/cortexerr"
)

// ExportData is the exportable snapshot of one user's data: memories and the
// facts active at export time.
type ExportData struct {
	Version    string         `yaml:"version" json:"version"`
	ExportedAt string         `yaml:"exported_at" json:"exported_at"`
	Tool       string         `yaml:"tool" json:"tool"`
	Memories   []ExportMemory `yaml:"memories,omitempty" json:"memories,omitempty"`
	Facts      []ExportFact   `yaml:"facts,omitempty" json:"facts,omitempty"`
}

// ExportMemory represents one HSG memory for export.
type ExportMemory struct {
	ID            string   `yaml:"id" json:"id"`
	Content       string   `yaml:"content" json:"content"`
	PrimarySector string   `yaml:"primary_sector" json:"primary_sector"`
	Sectors       []string `yaml:"sectors,omitempty" json:"sectors,omitempty"`
	Tags          []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Salience      float64  `yaml:"salience" json:"salience"`
	CreatedAt     string   `yaml:"created_at" json:"created_at"`
}

// ExportFact represents one TKG fact for export.
type ExportFact struct {
	ID         string  `yaml:"id" json:"id"`
	Subject    string  `yaml:"subject" json:"subject"`
	Predicate  string  `yaml:"predicate" json:"predicate"`
	Object     string  `yaml:"object" json:"object"`
	ValidFrom  string  `yaml:"valid_from" json:"valid_from"`
	ValidTo    string  `yaml:"valid_to,omitempty" json:"valid_to,omitempty"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// Export builds a snapshot of userID's memories and of the facts active at
// export time; closed facts, links, edges and waypoints are not included.
func (s *Storage) Export(ctx context.Context, userID string) (*ExportData, error) {
	data := &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Tool:       "cortexmem",
	}

	memories, err := s.Memories.List(ctx, userID, "", -1)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "export: list memories", err)
	}
	for _, m := range memories {
		sectors := make([]string, 0, len(m.Sectors))
		for _, sec := range m.Sectors {
			sectors = append(sectors, string(sec))
		}
		data.Memories = append(data.Memories, ExportMemory{
			ID:            m.ID,
			Content:       m.Content,
			PrimarySector: string(m.PrimarySector),
			Sectors:       sectors,
			Tags:          m.Tags,
			Salience:      m.Salience,
			CreatedAt:     m.CreatedAt.Format(time.RFC3339),
		})
	}

	facts, err := s.Facts.QueryAt(ctx, FactFilter{UserID: userID}, time.Now())
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "export: query facts", err)
	}
	for _, f := range facts {
		ef := ExportFact{
			ID:         f.ID,
			Subject:    f.Subject,
			Predicate:  f.Predicate,
			Object:     f.Object,
			ValidFrom:  f.ValidFrom.Format(time.RFC3339),
			Confidence: f.Confidence,
		}
		if f.ValidTo != nil {
			ef.ValidTo = f.ValidTo.Format(time.RFC3339)
		}
		data.Facts = append(data.Facts, ef)
	}

	return data, nil
}

// ExportYAML renders a snapshot as YAML.
func ExportYAML(data *ExportData) ([]byte, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.Internal, "marshal export yaml", err)
	}
	return out, nil
}
