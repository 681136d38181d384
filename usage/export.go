package usage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
)

// Entry is the structured export form: one entry per invocation. Cost is
// serialized as a decimal string to survive round-trips without float loss.
type Entry struct {
	AgentName    string `json:"agent_name"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	Cost         string `json:"cost"`
}

// Export converts records to the structured entry form. It is a pure function
// of its input: exporting the same records twice yields identical output.
func Export(records []Record) []Entry {
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = Entry{
			AgentName:    r.AgentName,
			Model:        r.ModelID,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			TotalTokens:  r.TotalTokens(),
			Cost:         r.Cost.String(),
		}
	}
	return entries
}

// WriteJSON writes the structured export form as indented JSON.
func WriteJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Export(records))
}

var csvHeader = []string{"agent_name", "model", "input_tokens", "output_tokens", "total_tokens", "cost"}

// WriteCSV writes the tabular export form, one row per invocation, suitable
// for spreadsheet or columnar tools.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range Export(records) {
		row := []string{
			e.AgentName,
			e.Model,
			strconv.Itoa(e.InputTokens),
			strconv.Itoa(e.OutputTokens),
			strconv.Itoa(e.TotalTokens),
			e.Cost,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
