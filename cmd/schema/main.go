// Command schema writes the JSON schema of cubscope configuration, used for pkg/config/schema.json
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/umputun/cubscope/pkg/config"
)

func main() {
	out := "schema.json"
	if len(os.Args) > 1 {
		out = os.Args[1]
	}
	if err := writeSchema(out); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	fmt.Printf("config schema written to %s\n", out)
}

// writeSchema generates the config schema and stores it at path, newline terminated
func writeSchema(path string) error {
	data, err := json.MarshalIndent(config.GenerateSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write schema to %s: %w", path, err)
	}
	return nil
}
