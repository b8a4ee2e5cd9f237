package domain

import "gorm.io/datatypes"

func newJSONItems(items []LineItem) datatypes.JSONType[[]LineItem] {
	if items == nil {
		items = []LineItem{}
	}
	return datatypes.NewJSONType(items)
}

func newJSONSchema(schema Schema) datatypes.JSONType[Schema] {
	if len(schema) == 0 {
		schema = DefaultSchema()
	}
	return datatypes.NewJSONType(schema)
}
