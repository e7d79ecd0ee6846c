package cmd

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	bytesEncoding string
	bytesRaw      bool
	bytesSave     bool
)

var bytesCmd = &cobra.Command{
	Use:   "bytes <count>",
	Short: "Generate random bytes",
	Long: `Initializes the generator for the identity and emits the requested
number of random bytes on stdout. Output is hex by default; --encoding
selects base64 and --raw writes the bytes unencoded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid byte count %q: %w", args[0], err)
		}

		if _, err = rng.Initialize([]byte(secret), identity); err != nil {
			return formatError("initialization failed", err)
		}

		buf, err := rng.GetBytes(uint32(count))
		if err != nil {
			return formatError("generation failed", err)
		}

		if bytesSave {
			ch, err := rng.SaveState()
			if err != nil {
				return formatError("save failed", err)
			}
			<-ch
		}

		if bytesRaw {
			_, err = os.Stdout.Write(buf)
			return err
		}

		switch bytesEncoding {
		case "hex":
			fmt.Println(hex.EncodeToString(buf))
		case "base64":
			fmt.Println(base64.StdEncoding.EncodeToString(buf))
		default:
			return fmt.Errorf("unsupported encoding: %s. Supported encodings: hex, base64", bytesEncoding)
		}
		return nil
	},
}

func init() {
	bytesCmd.Flags().StringVarP(&bytesEncoding, "encoding", "e", "hex", "output encoding (hex, base64)")
	bytesCmd.Flags().BoolVar(&bytesRaw, "raw", false, "write raw bytes to stdout")
	bytesCmd.Flags().BoolVar(&bytesSave, "save", true, "persist state after generating")
	rootCmd.AddCommand(bytesCmd)
}
