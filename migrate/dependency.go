package migrate

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	dependencyHeader = "-- dependsOn: "
	alwaysRunHeader  = "-- runs: always"
)

// headerLines returns the leading comment block of a script, skipping blank lines.
func headerLines(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		lines = append(lines, line)
	}
	return lines
}

func parseDependencies(content string) []string {
	var dependencies []string
	for _, line := range headerLines(content) {
		if !strings.HasPrefix(line, dependencyHeader) {
			continue
		}

		deps := strings.Split(strings.TrimPrefix(line, dependencyHeader), ",")
		dependencies = append(dependencies, lo.FilterMap(deps, func(x string, _ int) (string, bool) {
			x = strings.TrimSpace(x)
			return x, x != ""
		})...)
	}

	return dependencies
}

func isMarkedForAlwaysRun(content string) bool {
	return lo.Contains(headerLines(content), alwaysRunHeader)
}

// DependencyMap map holds path -> dependents
type DependencyMap map[string][]string

// getDependencyTree returns a list of scripts and its dependents
//
// example: if a.sql dependsOn b.sql, c.sql
// it returns
//
//	{
//		b.sql: []string{a.sql},
//		c.sql: []string{a.sql},
//	}
func getDependencyTree(scripts map[string]string) DependencyMap {
	graph := make(DependencyMap)
	for name, content := range scripts {
		for _, dependency := range parseDependencies(content) {
			graph[dependency] = append(graph[dependency], name)
		}
	}
	for k := range graph {
		sort.Strings(graph[k])
	}
	return graph
}

// orderScripts sorts scripts by name while placing every script after the ones it dependsOn.
func orderScripts(scripts map[string]string) ([]string, error) {
	names := lo.Keys(scripts)
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	var ordered []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle: %s -> %s", strings.Join(path, " -> "), name)
		}

		content, ok := scripts[name]
		if !ok {
			return fmt.Errorf("%s depends on unknown script %s", path[len(path)-1], name)
		}

		state[name] = visiting
		deps := parseDependencies(content)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		ordered = append(ordered, name)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
