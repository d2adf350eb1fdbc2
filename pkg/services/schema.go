package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/adapters/datasource"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/apperrors"
	"github.com/guangxiangdebizi/MySQL-ragLLM/pkg/config"
)

// DatabaseStructure is the full introspected picture of one database:
// tables with columns, keys and samples, plus the flattened foreign-key
// edges between them.
type DatabaseStructure struct {
	Database      string                 `json:"database"`
	Dialect       string                 `json:"dialect"`
	Tables        []datasource.TableInfo `json:"tables"`
	Relationships []ForeignKeyEdge       `json:"relationships"`
}

// ForeignKeyEdge is one foreign-key reference between two tables.
type ForeignKeyEdge struct {
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// SchemaService serves database structure and the relationship graph.
type SchemaService interface {
	// Structure introspects the connected database, samples included.
	Structure(ctx context.Context, cfg *datasource.ConnectionConfig) (*DatabaseStructure, error)

	// Relationships builds the graph view of tables and foreign keys.
	Relationships(ctx context.Context, cfg *datasource.ConnectionConfig) (*Graph, error)
}

type schemaService struct {
	conns  ConnectionService
	cfg    *config.QueryConfig
	logger *zap.Logger
}

// NewSchemaService creates the schema service.
func NewSchemaService(conns ConnectionService, cfg *config.QueryConfig, logger *zap.Logger) SchemaService {
	return &schemaService{conns: conns, cfg: cfg, logger: logger.Named("schema")}
}

func (s *schemaService) Structure(ctx context.Context, cfg *datasource.ConnectionConfig) (*DatabaseStructure, error) {
	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	schema, err := conn.DescribeSchema(ctx, s.cfg.SampleRows)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageIntrospection, err)
	}

	return &DatabaseStructure{
		Database:      schema.Database,
		Dialect:       schema.Dialect,
		Tables:        schema.Tables,
		Relationships: foreignKeyEdges(schema),
	}, nil
}

func (s *schemaService) Relationships(ctx context.Context, cfg *datasource.ConnectionConfig) (*Graph, error) {
	conn, err := s.conns.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// The graph needs structure and counts, not row samples.
	schema, err := conn.DescribeSchema(ctx, 0)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, apperrors.StageIntrospection, err)
	}
	return BuildGraph(schema), nil
}

// foreignKeyEdges flattens per-table foreign keys into one edge list,
// keeping introspection order.
func foreignKeyEdges(schema *datasource.SchemaDescription) []ForeignKeyEdge {
	edges := []ForeignKeyEdge{}
	for i := range schema.Tables {
		table := &schema.Tables[i]
		for _, fk := range table.ForeignKeys {
			edges = append(edges, ForeignKeyEdge{
				SourceTable:  table.Name,
				SourceColumn: fk.Column,
				TargetTable:  fk.ReferencedTable,
				TargetColumn: fk.ReferencedColumn,
			})
		}
	}
	return edges
}
