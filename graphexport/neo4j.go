// Package graphexport stores a topology in a Neo4j graph database, where it
// can be browsed and queried with Cypher
package graphexport

import (
	"context"
	"fmt"

	"github.com/iti/pcktsim"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Statement is a Cypher query and its parameters
type Statement struct {
	Query  string
	Params map[string]any
}

// Statements returns what must be run to replace the content of the database
// with the topology described by td
func Statements(td *pcktsim.TopoDesc) []Statement {
	stmts := []Statement{
		{Query: `MATCH (n:Node {topology: $topology}) DETACH DELETE n`,
			Params: map[string]any{"topology": td.Name}},
		{Query: `CREATE CONSTRAINT uniq_node_id IF NOT EXISTS
		FOR (n:Node)
		REQUIRE (n.topology, n.id) IS UNIQUE`,
			Params: map[string]any{}},
	}
	for _, nd := range td.Nodes {
		kind := nd.Kind
		if kind == "" {
			kind = pcktsim.HostKind.String()
		}
		var delay any
		if nd.Delay != nil {
			delay = *nd.Delay
		}
		stmts = append(stmts, Statement{
			Query: `CREATE (n:Node {topology: $topology, id: $id, name: $name, kind: $kind, delay: $delay})`,
			Params: map[string]any{"topology": td.Name, "id": nd.ID, "name": nd.Name,
				"kind": kind, "delay": delay},
		})
	}
	for _, ld := range td.Links {
		params := map[string]any{"topology": td.Name, "from": ld.FromID, "to": ld.DestID,
			"bandwidth": ld.Bandwidth, "delay": ld.Delay, "errorRate": ld.ErrorRate}
		query := `MATCH (a:Node {topology: $topology, id: $from}), (b:Node {topology: $topology, id: $to})
		CREATE (a)-[:LINK {bandwidth: $bandwidth, delay: $delay, errorRate: $errorRate}]->(b)`
		stmts = append(stmts, Statement{Query: query, Params: params})
		if kind, err := pcktsim.ParseLinkKind(ld.LinkType); err == nil && kind == pcktsim.Duplex {
			stmts = append(stmts, Statement{Query: query, Params: withSwapped(params)})
		}
	}
	return stmts
}

func withSwapped(params map[string]any) map[string]any {
	swapped := make(map[string]any, len(params))
	for k, v := range params {
		swapped[k] = v
	}
	swapped["from"], swapped["to"] = params["to"], params["from"]
	return swapped
}

// runner executes one statement
type runner func(ctx context.Context, stmt Statement) error

// Exporter writes topologies to a Neo4j database
type Exporter struct {
	driver   neo4j.DriverWithContext
	database string
	run      runner
}

// NewExporter connects to the database at uri.  An empty user selects no
// authentication.
func NewExporter(ctx context.Context, uri, user, password, database string) (*Exporter, error) {
	auth := neo4j.NoAuth()
	if user != "" {
		auth = neo4j.BasicAuth(user, password, "")
	}
	// URI examples: "neo4j://localhost", "neo4j+s://xxx.databases.neo4j.io"
	driver, err := neo4j.NewDriverWithContext(uri, auth)
	if err != nil {
		return nil, err
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}
	if database == "" {
		database = "neo4j"
	}

	e := &Exporter{driver: driver, database: database}
	e.run = e.query
	return e, nil
}

func (e *Exporter) query(ctx context.Context, stmt Statement) error {
	_, err := neo4j.ExecuteQuery(ctx, e.driver, stmt.Query, stmt.Params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(e.database))
	return err
}

// Export replaces the stored copy of the topology described by td
func (e *Exporter) Export(ctx context.Context, td *pcktsim.TopoDesc) error {
	for _, stmt := range Statements(td) {
		if err := e.run(ctx, stmt); err != nil {
			return fmt.Errorf("exporting %s: %w", td.Name, err)
		}
	}
	return nil
}

// ExportTopology exports a built topology
func (e *Exporter) ExportTopology(ctx context.Context, topo *pcktsim.Topology) error {
	return e.Export(ctx, pcktsim.TransformTopology(topo))
}

// Close releases the connection
func (e *Exporter) Close(ctx context.Context) error {
	if e.driver == nil {
		return nil
	}
	return e.driver.Close(ctx)
}
