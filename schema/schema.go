package schema

import "embed"

//go:embed *.sql
var scripts embed.FS

// GetScripts returns every embedded migration script keyed by file name.
func GetScripts() (map[string]string, error) {
	entries, err := scripts.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var all = make(map[string]string)
	for _, file := range entries {
		script, err := scripts.ReadFile(file.Name())
		if err != nil {
			return nil, err
		}
		all[file.Name()] = string(script)
	}
	return all, nil
}
