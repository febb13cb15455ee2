package sdkgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tsgonest/clientgen/internal/analyzer"
	"github.com/tsgonest/clientgen/internal/jsonschema"
)

// SchemaToTS converts a schema node to a TypeScript type string.
func SchemaToTS(node *jsonschema.Schema) string {
	if node == nil {
		return "unknown"
	}
	if node.Ref != "" {
		return analyzer.SafeTSName(jsonschema.RefName(node.Ref))
	}

	switch node.Type {
	case "string":
		if len(node.Enum) > 0 {
			return enumToTSUnion(node.Enum)
		}
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "array":
		itemType := SchemaToTS(node.Items)
		if strings.Contains(itemType, " | ") && !strings.HasPrefix(itemType, "(") {
			return "(" + itemType + ")[]"
		}
		return itemType + "[]"
	case "object":
		if node.AdditionalProperties != nil {
			return "Record<string, " + SchemaToTS(node.AdditionalProperties) + ">"
		}
		return "Record<string, unknown>"
	default:
		return "unknown"
	}
}

func enumToTSUnion(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			parts = append(parts, strconv.Quote(s))
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, " | ")
}

// GenerateInterface emits the declaration of name from its definition in
// doc. Object definitions become interfaces and everything else a type
// alias. A missing definition emits a placeholder interface.
func GenerateInterface(name string, doc *jsonschema.Document) string {
	tsName := analyzer.SafeTSName(name)
	node, ok := doc.Definition(name)
	if !ok {
		return fmt.Sprintf("export interface %s {\n  // schema unavailable: no definition for %s\n}", tsName, name)
	}

	var sb strings.Builder
	if node.Description != "" {
		sb.WriteString(buildSchemaJSDoc(node.Description))
	}

	if node.Type != "object" || node.AdditionalProperties != nil {
		fmt.Fprintf(&sb, "export type %s = %s;", tsName, SchemaToTS(node))
		return sb.String()
	}

	requiredSet := make(map[string]bool, len(node.Required))
	for _, r := range node.Required {
		requiredSet[r] = true
	}

	if len(node.Properties) == 0 {
		fmt.Fprintf(&sb, "export interface %s {}", tsName)
		return sb.String()
	}

	fmt.Fprintf(&sb, "export interface %s {\n", tsName)
	for _, propName := range node.PropertyNames() {
		prop := node.Properties[propName]
		opt := "?"
		if requiredSet[propName] {
			opt = ""
		}
		if prop.Description != "" {
			sb.WriteString(buildPropertyJSDoc(prop.Description))
		}
		fmt.Fprintf(&sb, "  %s%s: %s;\n", analyzer.PropertyKey(propName), opt, SchemaToTS(prop))
	}
	sb.WriteString("}")
	return sb.String()
}

// buildSchemaJSDoc generates a JSDoc comment for a declaration.
func buildSchemaJSDoc(description string) string {
	return jsDoc("", description)
}

// buildPropertyJSDoc generates a JSDoc comment for an interface property.
func buildPropertyJSDoc(description string) string {
	return jsDoc("  ", description)
}

func jsDoc(indent, description string) string {
	lines := strings.Split(strings.TrimSpace(description), "\n")
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(strings.TrimRight(line, " \t"), "*/", "*\\/")
	}
	if len(lines) == 1 {
		return fmt.Sprintf("%s/** %s */\n", indent, lines[0])
	}
	var sb strings.Builder
	sb.WriteString(indent + "/**\n")
	for _, line := range lines {
		if line == "" {
			sb.WriteString(indent + " *\n")
		} else {
			fmt.Fprintf(&sb, "%s * %s\n", indent, line)
		}
	}
	sb.WriteString(indent + " */\n")
	return sb.String()
}
