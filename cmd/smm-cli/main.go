package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sparlane/smm-asset-api/pkg/client"
	"github.com/sparlane/smm-asset-api/pkg/models"
)

var (
	serverURL string
	username  string
	password  string
	insecure  bool
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "smm-cli",
		Short: "Search Management Map asset command line interface",
		Long: `A command-line interface for acting as an asset in a
search operation coordinated by a Search Management Map server.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "SMM server URL")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Username to authenticate as")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password to authenticate with")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Skip TLS certificate verification")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.AddCommand(assetsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(searchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() {
	viper.SetConfigName("smm-cli")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/smm-asset/")
	viper.AddConfigPath("$HOME/.smm-asset/")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SMM")

	_ = viper.ReadInConfig()

	if serverURL == "" {
		serverURL = viper.GetString("server_url")
	}
	if username == "" {
		username = viper.GetString("username")
	}
	if password == "" {
		password = viper.GetString("password")
	}
}

// connect opens a connection or exits with the failure state.
func connect() *client.Connection {
	opts := []client.Option{client.WithTimeout(30 * time.Second)}
	if insecure {
		opts = append(opts, client.WithInsecureTLS())
	}
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			opts = append(opts, client.WithLogger(logger))
		}
	}

	conn := client.Connect(serverURL, username, password, opts...)
	if state := conn.State(); state != models.StateConnected {
		conn.Close()
		fmt.Fprintf(os.Stderr, "connection failed: %s\n", state)
		os.Exit(1)
	}
	return conn
}

// findAsset resolves the named asset, or the only one when unnamed.
func findAsset(conn *client.Connection, name string) *client.Asset {
	assets, err := conn.Assets()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	for _, a := range assets {
		if name == "" || a.Name() == name {
			return a
		}
	}
	fmt.Fprintf(os.Stderr, "asset not available: %s\n", name)
	os.Exit(1)
	return nil
}

func assetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List the assets available to this user",
		Run: func(cmd *cobra.Command, args []string) {
			conn := connect()
			defer conn.Close()

			assets, err := conn.Assets()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			fmt.Printf("%-8s %-10s %-24s %s\n", "ID", "TYPE ID", "NAME", "TYPE")
			for _, a := range assets {
				fmt.Printf("%-8d %-10d %-24s %s\n", a.ID(), a.TypeID(), a.Name(), a.TypeName())
			}
		},
	}
}

func reportCmd() *cobra.Command {
	var (
		assetName string
		lat       float64
		lon       float64
		alt       uint32
		bearing   uint16
		fix       uint8
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Report an asset position and show the server's command",
		Run: func(cmd *cobra.Command, args []string) {
			conn := connect()
			defer conn.Close()
			asset := findAsset(conn, assetName)

			if err := asset.ReportPosition(lat, lon, alt, bearing, fix); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			command := asset.LastCommand()
			fmt.Printf("command: %s\n", command)
			if tlat, tlon, ok := asset.LastGotoPosition(); ok {
				fmt.Printf("target: %f, %f\n", tlat, tlon)
			}
		},
	}
	cmd.Flags().StringVar(&assetName, "asset", "", "Asset to act as")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude in decimal degrees")
	cmd.Flags().Uint32Var(&alt, "alt", 0, "Altitude in metres")
	cmd.Flags().Uint16Var(&bearing, "bearing", 0, "Bearing in degrees")
	cmd.Flags().Uint8Var(&fix, "fix", 3, "GPS fix type")
	return cmd
}

func searchCmd() *cobra.Command {
	var (
		assetName string
		lat       float64
		lon       float64
		accept    bool
		complete  bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find the closest search, optionally accepting or completing it",
		Run: func(cmd *cobra.Command, args []string) {
			conn := connect()
			defer conn.Close()
			asset := findAsset(conn, assetName)

			search, err := asset.Search(lat, lon)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			if search == nil {
				fmt.Println("no search available")
				return
			}

			fmt.Printf("search: %s\n", search.URL())
			fmt.Printf("distance to start: %d m\n", search.Distance())
			fmt.Printf("sweep length: %d m\n", search.Length())
			fmt.Printf("sweep width: %d m\n", search.SweepWidth())

			waypoints, err := search.Waypoints()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			for i, wp := range waypoints {
				fmt.Printf("waypoint %d: %f, %f\n", i+1, wp.Latitude, wp.Longitude)
			}

			if accept {
				if err := search.Accept(); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				fmt.Println("search accepted")
			}
			if complete {
				if err := search.Complete(); err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(1)
				}
				fmt.Println("search completed")
			}
		},
	}
	cmd.Flags().StringVar(&assetName, "asset", "", "Asset to act as")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Current latitude in decimal degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Current longitude in decimal degrees")
	cmd.Flags().BoolVar(&accept, "accept", false, "Accept the search")
	cmd.Flags().BoolVar(&complete, "complete", false, "Mark the search complete")
	return cmd
}
