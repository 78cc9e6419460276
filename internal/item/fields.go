package item

import (
	"strings"

	"asset-tracker-backend/internal/model"
	"asset-tracker-backend/internal/parse"
)

// scalarField maps one form field onto an item column. set writes the coerced
// value into it and returns the value to store.
type scalarField struct {
	column string
	set    func(it *model.Item, raw string) any
}

func text(assign func(it *model.Item, v string)) func(*model.Item, string) any {
	return func(it *model.Item, raw string) any {
		v := strings.TrimSpace(raw)
		assign(it, v)
		return v
	}
}

func coordinate(assign func(it *model.Item, v *float64)) func(*model.Item, string) any {
	return func(it *model.Item, raw string) any {
		v := parse.Coordinate(raw)
		assign(it, v)
		return v
	}
}

var scalarFields = map[string]scalarField{
	"name":           {"name", text(func(it *model.Item, v string) { it.Name = v })},
	"category":       {"category", text(func(it *model.Item, v string) { it.Category = v })},
	"location":       {"location", text(func(it *model.Item, v string) { it.Location = v })},
	"machineStatus":  {"machine_status", text(func(it *model.Item, v string) { it.MachineStatus = v })},
	"priority":       {"priority", text(func(it *model.Item, v string) { it.Priority = v })},
	"condition":      {"condition", text(func(it *model.Item, v string) { it.Condition = v })},
	"operatingHours": {"operating_hours", text(func(it *model.Item, v string) { it.OperatingHours = v })},
	"quantity": {"quantity", func(it *model.Item, raw string) any {
		it.Quantity = parse.Quantity(raw)
		return it.Quantity
	}},
	"floor": {"floor", func(it *model.Item, raw string) any {
		it.Floor = parse.Floor(raw)
		return it.Floor
	}},
	"lat":       {"latitude", coordinate(func(it *model.Item, v *float64) { it.Latitude = v })},
	"latitude":  {"latitude", coordinate(func(it *model.Item, v *float64) { it.Latitude = v })},
	"lon":       {"longitude", coordinate(func(it *model.Item, v *float64) { it.Longitude = v })},
	"longitude": {"longitude", coordinate(func(it *model.Item, v *float64) { it.Longitude = v })},
}

// applyFields coerces the recognized form fields into it and returns the
// matching column map. Unknown fields are ignored.
func applyFields(it *model.Item, fields map[string]string) map[string]any {
	columns := make(map[string]any, len(fields))
	for name, raw := range fields {
		f, ok := scalarFields[name]
		if !ok {
			continue
		}
		columns[f.column] = f.set(it, raw)
	}
	return columns
}
