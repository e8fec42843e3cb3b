package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"

	"pitunes/internal/extid"
	"pitunes/pkg/models"
)

// idScalar carries catalog ids over the wire as opaque base64 strings.
// Inputs also accept a raw integer; outputs are always the encoded form.
var idScalar = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "ID",
	Description: "Opaque entity id.",
	Serialize: func(value interface{}) interface{} {
		switch v := value.(type) {
		case int32:
			return extid.Encode(v)
		case *int32:
			if v == nil {
				return nil
			}
			return extid.Encode(*v)
		default:
			return nil
		}
	},
	ParseValue: func(value interface{}) interface{} {
		return coerceID(value)
	},
	ParseLiteral: func(valueAST ast.Value) interface{} {
		switch v := valueAST.(type) {
		case *ast.StringValue:
			return coerceID(v.Value)
		case *ast.IntValue:
			return coerceID(v.Value)
		default:
			return nil
		}
	},
})

// coerceID turns a client-supplied id into an int32, or nil when it is
// unusable. JSON numbers arrive as float64.
func coerceID(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		if id, err := extid.Decode(v); err == nil {
			return id
		}
		var id int32
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			return id
		}
		return nil
	case int:
		return int32(v)
	case int32:
		return v
	case float64:
		return int32(v)
	default:
		return nil
	}
}

// idArg extracts a required id argument.
func idArg(args map[string]interface{}, name string) (int32, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing %s", models.ErrBadID, name)
	}
	id, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("%w: %s", models.ErrBadID, name)
	}
	return id, nil
}

// optIDArg extracts an optional id, nil when absent.
func optIDArg(args map[string]interface{}, name string) (*int32, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	id, ok := v.(int32)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrBadID, name)
	}
	return &id, nil
}

// optIntArg extracts an optional plain Int, nil when absent.
func optIntArg(args map[string]interface{}, name string) *int32 {
	v, ok := args[name]
	if !ok || v == nil {
		return nil
	}
	if n, ok := v.(int); ok {
		n32 := int32(n)
		return &n32
	}
	return nil
}

// strArg extracts a required string.
func strArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing %s", models.ErrBadID, name)
	}
	return v, nil
}
