package services

import (
	"fmt"
	"testing"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
)

func findNode(t *testing.T, graph *Graph, id string) GraphNode {
	t.Helper()
	for _, node := range graph.Nodes {
		if node.ID == id {
			return node
		}
	}
	t.Fatalf("node %q not in graph", id)
	return GraphNode{}
}

func TestBuildGraph(t *testing.T) {
	graph := BuildGraph(shopSchema())

	// Two tables of three columns each: a node per table and per column.
	if got := len(graph.Nodes); got != 8 {
		t.Fatalf("len(Nodes) = %d, want 8", got)
	}
	// One foreign key plus one has_column edge per column.
	if got := len(graph.Edges); got != 7 {
		t.Fatalf("len(Edges) = %d, want 7", got)
	}

	users := findNode(t, graph, "users")
	if users.Type != NodeTypeTable {
		t.Errorf("users.Type = %q, want %q", users.Type, NodeTypeTable)
	}
	if users.Entity != "User" {
		t.Errorf("users.Entity = %q, want %q", users.Entity, "User")
	}
	if users.Size != 32 {
		t.Errorf("users.Size = %d, want 32", users.Size)
	}

	orders := findNode(t, graph, "orders")
	if orders.Size != 42 {
		t.Errorf("orders.Size = %d, want 42", orders.Size)
	}

	var fk *GraphEdge
	for i := range graph.Edges {
		if graph.Edges[i].Type == EdgeTypeForeignKey {
			fk = &graph.Edges[i]
		}
	}
	if fk == nil {
		t.Fatal("no foreign_key edge in graph")
	}
	if fk.Source != "orders" || fk.Target != "users" {
		t.Errorf("fk edge = %s -> %s, want orders -> users", fk.Source, fk.Target)
	}
	if fk.Label != "user_id -> id" {
		t.Errorf("fk.Label = %q, want %q", fk.Label, "user_id -> id")
	}
	if fk.Description != "Order references User" {
		t.Errorf("fk.Description = %q, want %q", fk.Description, "Order references User")
	}

	id := findNode(t, graph, "users.id")
	if id.Type != NodeTypePrimaryKey {
		t.Errorf("users.id Type = %q, want %q", id.Type, NodeTypePrimaryKey)
	}
	if id.Parent != "users" || id.DataType != "INTEGER" || id.Size != columnNodeSize {
		t.Errorf("users.id = %+v, want parent users, INTEGER, size %d", id, columnNodeSize)
	}

	email := findNode(t, graph, "users.email")
	if email.Type != NodeTypeColumn {
		t.Errorf("users.email Type = %q, want %q", email.Type, NodeTypeColumn)
	}

	hasColumn := 0
	for _, edge := range graph.Edges {
		if edge.Type == EdgeTypeHasColumn && edge.Source == "users" && edge.Target == "users.id" {
			hasColumn++
		}
	}
	if hasColumn != 1 {
		t.Errorf("users -> users.id has_column edges = %d, want 1", hasColumn)
	}
}

func TestBuildGraphSkipsColumnNodesForLargeSchemas(t *testing.T) {
	schema := &datasource.SchemaDescription{Database: "big", Dialect: datasource.DriverMySQL}
	for i := 0; i < maxColumnNodeTables+1; i++ {
		schema.Tables = append(schema.Tables, datasource.TableInfo{
			Name:    fmt.Sprintf("table_%d", i),
			Columns: []datasource.ColumnInfo{{Name: "id", DataType: "INTEGER", IsPrimaryKey: true}},
		})
	}

	graph := BuildGraph(schema)
	if got := len(graph.Nodes); got != maxColumnNodeTables+1 {
		t.Fatalf("len(Nodes) = %d, want %d table nodes only", got, maxColumnNodeTables+1)
	}
	for _, node := range graph.Nodes {
		if node.Type != NodeTypeTable {
			t.Errorf("node %q has type %q, want only table nodes", node.ID, node.Type)
		}
	}
	if got := len(graph.Edges); got != 0 {
		t.Errorf("len(Edges) = %d, want 0", got)
	}
}

func TestBuildGraphEmptySchemaHasEmptySlices(t *testing.T) {
	graph := BuildGraph(&datasource.SchemaDescription{Database: "empty"})
	if graph.Nodes == nil || graph.Edges == nil {
		t.Fatal("empty graph must serialize as [] not null")
	}
	if len(graph.Nodes) != 0 || len(graph.Edges) != 0 {
		t.Errorf("empty schema produced %d nodes, %d edges", len(graph.Nodes), len(graph.Edges))
	}
}

func TestTableNodeSize(t *testing.T) {
	ptr := func(n int64) *int64 { return &n }
	tests := []struct {
		rows *int64
		want int
	}{
		{nil, 30},
		{ptr(0), 30},
		{ptr(250), 32},
		{ptr(1200), 42},
		{ptr(6900), 99},
		{ptr(50000), 100},
	}
	for _, tt := range tests {
		if got := tableNodeSize(tt.rows); got != tt.want {
			t.Errorf("tableNodeSize(%v) = %d, want %d", tt.rows, got, tt.want)
		}
	}
}

func TestEntityName(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"users", "User"},
		{"orders", "Order"},
		{"order_items", "Order_item"},
		{"public.order_items", "Order_item"},
		{"people", "Person"},
		{"categories", "Category"},
	}
	for _, tt := range tests {
		if got := entityName(tt.table); got != tt.want {
			t.Errorf("entityName(%q) = %q, want %q", tt.table, got, tt.want)
		}
	}
}
