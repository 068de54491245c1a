package nn

import (
	"fmt"
	"io"

	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/errs"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/serialization"
	"github.com/maximilianmbeck/RNN-adaptation-fewshot/internal/tensor"
)

const metaModel = "model"

// SaveWeights writes the model parameters in SafeTensors format.
func SaveWeights(w io.Writer, m Model) error {
	tensors := make(map[string]*tensor.Dense, m.Parameters().Len())
	for _, p := range m.Parameters().All() {
		tensors[p.Name()] = p.Value()
	}
	if err := serialization.Write(w, tensors, map[string]string{metaModel: m.Name()}); err != nil {
		return fmt.Errorf("save %s weights: %w", m.Name(), err)
	}
	return nil
}

// LoadWeights replaces the model parameters with those stored in r.
// Every parameter must be present with its exact shape; on error the model
// is left unchanged.
func LoadWeights(r io.ReadSeeker, m Model) error {
	tensors, meta, err := serialization.ReadAll(r)
	if err != nil {
		return fmt.Errorf("load %s weights: %w", m.Name(), err)
	}
	if name, ok := meta[metaModel]; ok && name != m.Name() {
		return errs.Shape("weights model", m.Name(), name)
	}
	if err := m.Parameters().Assign(tensors); err != nil {
		return fmt.Errorf("load %s weights: %w", m.Name(), err)
	}
	return nil
}
