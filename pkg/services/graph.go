package services

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

// Graph node and edge types consumed by the relationship visualization.
const (
	NodeTypeTable      = "table"
	NodeTypePrimaryKey = "primary_key"
	NodeTypeColumn     = "column"

	EdgeTypeForeignKey = "foreign_key"
	EdgeTypeHasColumn  = "has_column"
)

// maxColumnNodeTables bounds when column nodes are included; past this
// many tables the graph is unreadable with them.
const maxColumnNodeTables = 10

// columnNodeSize is the fixed render size of column nodes.
const columnNodeSize = 15

// GraphNode is one renderable node of the relationship graph.
type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Entity is the singularized, capitalized name of the thing one row
	// represents ("orders" -> "Order"). Set on table nodes only.
	Entity   string `json:"entity,omitempty"`
	Size     int    `json:"size"`
	Type     string `json:"type"`
	Parent   string `json:"parent,omitempty"`
	DataType string `json:"data_type,omitempty"`
}

// GraphEdge connects two nodes.
type GraphEdge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// Graph is the node/edge view of a database's tables and foreign keys.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BuildGraph renders an introspected schema as a relationship graph. Table
// nodes are sized by row count; foreign keys become directed edges from the
// referencing table. Column nodes are attached only for small schemas.
func BuildGraph(schema *datasource.SchemaDescription) *Graph {
	graph := &Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}

	for i := range schema.Tables {
		table := &schema.Tables[i]
		graph.Nodes = append(graph.Nodes, GraphNode{
			ID:     table.Name,
			Label:  table.Name,
			Entity: entityName(table.Name),
			Size:   tableNodeSize(table.RowCount),
			Type:   NodeTypeTable,
		})

		for _, fk := range table.ForeignKeys {
			graph.Edges = append(graph.Edges, GraphEdge{
				Source: table.Name,
				Target: fk.ReferencedTable,
				Label:  fmt.Sprintf("%s -> %s", fk.Column, fk.ReferencedColumn),
				Description: fmt.Sprintf("%s references %s",
					entityName(table.Name), entityName(fk.ReferencedTable)),
				Type: EdgeTypeForeignKey,
			})
		}
	}

	if len(schema.Tables) <= maxColumnNodeTables {
		appendColumnNodes(graph, schema)
	}
	return graph
}

// appendColumnNodes adds one node per column plus the owning edge.
func appendColumnNodes(graph *Graph, schema *datasource.SchemaDescription) {
	for i := range schema.Tables {
		table := &schema.Tables[i]
		for _, col := range table.Columns {
			nodeType := NodeTypeColumn
			if col.IsPrimaryKey {
				nodeType = NodeTypePrimaryKey
			}
			id := table.Name + "." + col.Name
			graph.Nodes = append(graph.Nodes, GraphNode{
				ID:       id,
				Label:    col.Name,
				Size:     columnNodeSize,
				Type:     nodeType,
				Parent:   table.Name,
				DataType: col.DataType,
			})
			graph.Edges = append(graph.Edges, GraphEdge{
				Source: table.Name,
				Target: id,
				Type:   EdgeTypeHasColumn,
			})
		}
	}
}

// tableNodeSize scales a node by row count, 30 at empty, capped at 100.
func tableNodeSize(rowCount *int64) int {
	var rows int64
	if rowCount != nil {
		rows = *rowCount
	}
	size := 30 + rows/100
	if size > 100 {
		size = 100
	}
	return int(size)
}

// entityName singularizes and capitalizes a table name, schema qualifier
// dropped: "public.order_items" -> "Order_item".
func entityName(table string) string {
	name := table
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	name = inflection.Singular(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
