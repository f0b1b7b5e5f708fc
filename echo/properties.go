package echo

import (
	"net/http"
	"sort"

	"github.com/flanksource/commons/properties"
	echov4 "github.com/labstack/echo/v4"
)

type Property struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Default     string `json:"default,omitempty"`
	Source      string `json:"source"`
	Description string `json:"description,omitempty"`
}

// SupportedProperties are the runtime properties read by the service.
var SupportedProperties = map[string]Property{
	"lifecycle.dual_role.precedence": {Default: "employer", Description: "Which role wins when the caller both applied to and posted the gig"},
	"applications.delete.strict":     {Default: "false", Description: "Return not_found when deleting an application that does not exist"},
	"casbin.explain":                 {Default: "false", Description: "Log the matching policy for each transition check"},
	"db.migrate.skip":                {Default: "false", Description: "Skip schema migrations on startup"},
	"memory.stats":                   {Description: "Interval at which memory usage is logged"},
}

// Properties lists the supported properties along with any other locally set ones.
func Properties(c echov4.Context) error {
	all := properties.Global.GetAll()

	output := make([]Property, 0, len(all)+len(SupportedProperties))
	for name, p := range SupportedProperties {
		p.Name = name
		p.Source = "default"
		if v, ok := all[name]; ok {
			p.Value, p.Source = v, "local"
		} else {
			p.Value = p.Default
		}
		output = append(output, p)
	}

	for name, v := range all {
		if _, ok := SupportedProperties[name]; ok {
			continue
		}
		output = append(output, Property{Name: name, Value: v, Source: "local"})
	}

	sort.Slice(output, func(i, j int) bool { return output[i].Name < output[j].Name })
	return c.JSON(http.StatusOK, output)
}
