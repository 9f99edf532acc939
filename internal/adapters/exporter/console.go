package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"telegram-script-bridge/internal/domain"
	"telegram-script-bridge/internal/ports"
)

// ConsoleExporter реализует интерфейс Exporter для вывода результатов в консоль.
type ConsoleExporter struct {
	out io.Writer
}

// NewConsoleExporter создает экспортер, пишущий в стандартный вывод.
func NewConsoleExporter() ports.Exporter {
	return &ConsoleExporter{out: os.Stdout}
}

// NewWriterExporter создает экспортер, пишущий в произвольный io.Writer.
func NewWriterExporter(w io.Writer) ports.Exporter {
	return &ConsoleExporter{out: w}
}

// Export выводит результаты обработки по одному на строку.
// Строковые результаты печатаются как есть, остальные — как компактный JSON.
func (e *ConsoleExporter) Export(results []domain.ScriptResult) error {
	fmt.Fprintln(e.out, "--- Script Results ---")
	if len(results) == 0 {
		fmt.Fprintln(e.out, "No results.")
		return nil
	}

	for i, res := range results {
		out, err := renderOutput(res.Output)
		if err != nil {
			return fmt.Errorf("result %s: %w", res.MessageID, err)
		}
		if out == "" {
			fmt.Fprintf(e.out, "%d. Message %s: <nil>\n", i+1, res.MessageID)
			continue
		}
		fmt.Fprintf(e.out, "%d. Message %s: %s\n", i+1, res.MessageID, out)
	}
	return nil
}

func renderOutput(output any) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal output: %w", err)
		}
		return string(data), nil
	}
}
