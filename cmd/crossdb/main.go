// Command crossdb is a small shell over the crossdb connection layer:
// execute statements, stream query results, or show how a backend renders a
// query, against any registered backend.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crossdb-io/crossdb"
	_ "github.com/crossdb-io/crossdb/mysql"
	_ "github.com/crossdb-io/crossdb/postgres"
	_ "github.com/crossdb-io/crossdb/sqlite"
)

var flagParams []string

var rootCmd = &cobra.Command{
	Use:           "crossdb",
	Short:         "Run statements against any registered crossdb backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().String("dsn", "", "connection DSN, e.g. postgres://user:pw@host:5432/db")
	rootCmd.PersistentFlags().String("log-format", "text", "log format: text or json")
	rootCmd.PersistentFlags().StringArrayVarP(&flagParams, "param", "p", nil, "named parameter, name=value (repeatable)")
	viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.SetEnvPrefix("CROSSDB")
	viper.AutomaticEnv()

	rootCmd.AddCommand(execCmd, queryCmd, describeCmd)
}

func setupLogging() {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if viper.GetString("log_format") == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	crossdb.SetLogger(slog.New(h))
}

func openConn() (*crossdb.Conn, error) {
	dsn := viper.GetString("dsn")
	if dsn == "" {
		return nil, errors.New("no DSN: pass --dsn or set CROSSDB_DSN")
	}
	conn, err := crossdb.OpenDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.ConnectSync(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// parseParams turns repeated name=value flags into a parameter map, with
// numeric and boolean literals converted.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad --param %q, want name=value", pair)
		}
		params[name] = convert(raw)
	}
	return params, nil
}

func convert(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if raw == "null" {
		return nil
	}
	return raw
}

func wait(issue func(crossdb.Callback)) crossdb.Result {
	ch := make(chan crossdb.Result, 1)
	issue(func(r crossdb.Result) { ch <- r })
	return <-ch
}

var execCmd = &cobra.Command{
	Use:   "exec <statement>",
	Short: "Execute a row-less statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(flagParams)
		if err != nil {
			return err
		}
		conn, err := openConn()
		if err != nil {
			return err
		}
		defer conn.Close()

		q := crossdb.SQL(args[0])
		var res crossdb.Result
		if params != nil {
			res = wait(func(cb crossdb.Callback) { conn.ExecuteNamed(q, params, cb) })
		} else {
			res = wait(func(cb crossdb.Callback) { conn.Execute(q, cb) })
		}
		if err := res.Err(); err != nil {
			return err
		}
		fmt.Printf("ok: %d row(s) affected\n", res.Info().RowsAffected)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <statement>",
	Short: "Run a query and stream its rows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := parseParams(flagParams)
		if err != nil {
			return err
		}
		conn, err := openConn()
		if err != nil {
			return err
		}
		defer conn.Close()

		q := crossdb.SQL(args[0])
		var res crossdb.Result
		if params != nil {
			res = wait(func(cb crossdb.Callback) { conn.QueryNamed(q, params, cb) })
		} else {
			res = wait(func(cb crossdb.Callback) { conn.Query(q, cb) })
		}
		if err := res.Err(); err != nil {
			return err
		}
		rs := res.Rows()
		if rs == nil {
			return nil
		}
		defer rs.Close()

		cols := rs.Columns()
		fmt.Println(strings.Join(cols, "\t"))
		row := make([]any, len(cols))
		for {
			if err := rs.Next(row); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			cells := make([]string, len(row))
			for i, v := range row {
				cells[i] = format(v)
			}
			fmt.Println(strings.Join(cells, "\t"))
		}
	},
}

func format(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

var describeCmd = &cobra.Command{
	Use:   "describe <statement>",
	Short: "Show the backend-rendered text of a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openConn()
		if err != nil {
			return err
		}
		defer conn.Close()

		text, err := conn.DescriptionOf(crossdb.SQL(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "crossdb:", err)
		os.Exit(1)
	}
}
