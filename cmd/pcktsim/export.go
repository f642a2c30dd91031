package main

import (
	"context"
	"fmt"

	"github.com/iti/pcktsim"
	"github.com/iti/pcktsim/graphexport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a topology.",
	Long: "`export --topology topo.yaml --output topo.json` rewrites a " +
		"topology description; with neo4j.uri set the topology is also " +
		"stored in a Neo4j database.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return exportTopology(cmd.Context(), loadSettings(viper.GetViper()), output)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("output", "", "file receiving the topology description (yaml or json)")
	exportCmd.Flags().String("neo4j", "", "URI of the Neo4j database")
	viper.BindPFlag("neo4j.uri", exportCmd.Flags().Lookup("neo4j"))
}

func exportTopology(ctx context.Context, s settings, output string) error {
	if output == "" && s.Neo4jURI == "" {
		return fmt.Errorf("nothing to export to: give an output file or a Neo4j URI")
	}
	topo, err := s.loadTopology()
	if err != nil {
		return err
	}

	if output != "" {
		if err := pcktsim.TransformTopology(topo).WriteToFile(output); err != nil {
			return err
		}
	}
	if s.Neo4jURI == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}
	exporter, err := graphexport.NewExporter(ctx, s.Neo4jURI, s.Neo4jUser, s.Neo4jPassword, s.Neo4jDatabase)
	if err != nil {
		return err
	}
	defer exporter.Close(ctx)
	return exporter.ExportTopology(ctx, topo)
}
