package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var routesCmd = &cobra.Command{
	Use:   "routes SRC DST",
	Short: "Show the route between two nodes.",
	Long: "`routes 1 4 --topology topo.yaml` prints the nodes on the " +
		"minimum-delay route from node 1 to node 4, and its propagation delay.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showRoute(cmd.OutOrStdout(), loadSettings(viper.GetViper()), args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}

func showRoute(w io.Writer, s settings, srcArg, dstArg string) error {
	src, err := strconv.ParseInt(srcArg, 10, 64)
	if err != nil {
		return fmt.Errorf("source node: %w", err)
	}
	dst, err := strconv.ParseInt(dstArg, 10, 64)
	if err != nil {
		return fmt.Errorf("destination node: %w", err)
	}

	topo, err := s.loadTopology()
	if err != nil {
		return err
	}
	path, err := topo.ShowPath(src, dst)
	if err != nil {
		return err
	}
	delay, err := topo.RouteDelay(src, dst)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%v)\n", path, delay)
	return nil
}
