// Command voron is a small inspection and scripting tool for voron
// database files.
package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voron"
)

var dbPath string

func main() {
	root := &cobra.Command{
		Use:          "voron",
		Short:        "Inspect and edit voron database files",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "voron.db", "database file path")

	root.AddCommand(infoCmd(), getCmd(), setCmd(), deleteCmd(), keysCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func openDB() (*voron.DB, error) {
	return voron.Open(dbPath)
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print tree shape and I/O counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			s := db.Stats()
			fmt.Printf("txid:           %d\n", s.TxID)
			fmt.Printf("root page:      %d\n", s.Root)
			fmt.Printf("depth:          %d\n", s.Depth)
			fmt.Printf("entries:        %d\n", s.EntryCount)
			fmt.Printf("pages:          %d\n", s.PageCount)
			fmt.Printf("  branch:       %d\n", s.BranchPages)
			fmt.Printf("  leaf:         %d\n", s.LeafPages)
			fmt.Printf("  overflow:     %d\n", s.OverflowPages)
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			value, err := db.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(value, '\n'))
			return err
		},
	}
}

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Set([]byte(args[0]), []byte(args[1]))
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return db.Delete([]byte(args[0]))
		},
	}
}

func keysCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List keys in order, optionally under a prefix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			return db.View(func(tx *voron.Tx) error {
				c := tx.Cursor()
				ok := c.First()
				if prefix != "" {
					ok = c.Seek([]byte(prefix))
				}
				for ; ok; ok = c.Next() {
					key := c.Key()
					if prefix != "" && !bytes.HasPrefix(key, []byte(prefix)) {
						break
					}
					fmt.Printf("%s\n", key)
				}
				return c.Err()
			})
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list keys with this prefix")
	return cmd
}
