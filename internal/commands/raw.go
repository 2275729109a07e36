package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/ai-aas/services/synadm/internal/errors"
)

var rawMethods = []string{"get", "post", "put", "delete"}

// rawFlags are shared by the admin API and client-server API raw commands.
type rawFlags struct {
	method   string
	data     string
	dataFile string
}

func (r *rawFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&r.method, "method", "m", "get", "HTTP method: "+strings.Join(rawMethods, ", "))
	cmd.Flags().StringVarP(&r.data, "data", "d", "{}", "JSON request body")
	cmd.Flags().StringVarP(&r.dataFile, "data-file", "f", "", "read the JSON request body from a file, '-' for stdin")
	cmd.MarkFlagsMutuallyExclusive("data", "data-file")
}

// request returns the validated method and decoded body.
func (r *rawFlags) request(stdin io.Reader) (string, any, error) {
	method := strings.ToLower(r.method)
	valid := false
	for _, m := range rawMethods {
		if m == method {
			valid = true
		}
	}
	if !valid {
		return "", nil, errors.NewUsageError(fmt.Sprintf("invalid method %q, choose one of %s", r.method, strings.Join(rawMethods, ", ")))
	}

	raw := []byte(r.data)
	if r.dataFile != "" {
		var err error
		if r.dataFile == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(r.dataFile)
		}
		if err != nil {
			return "", nil, errors.NewUsageError(fmt.Sprintf("request body could not be read: %v", err))
		}
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, errors.NewUsageError(fmt.Sprintf("request body is not valid JSON: %v", err))
	}
	return method, body, nil
}

// RawCommand sends arbitrary requests to the admin API.
func RawCommand(app *App) *cobra.Command {
	var flags rawFlags

	cmd := &cobra.Command{
		Use:   "raw ENDPOINT",
		Short: "Issue a custom request to the Synapse admin API",
		Long: `Issue a custom request to the Synapse admin API. ENDPOINT is appended to
the configured admin path as given, e.g. 'v2/users/@admin:example.org';
URL-encode it where needed.`,
		Example: `  synadm raw v1/server_version
  synadm raw -m post -d '{"erase": true}' v1/deactivate/@spammer:example.org`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, body, err := flags.request(app.in)
			if err != nil {
				return err
			}
			c, err := app.adminClient()
			if err != nil {
				return err
			}
			resp, err := c.Raw(cmd.Context(), method, args[0], body)
			if err != nil {
				return errors.FromRequest("Raw request failed", err)
			}
			return app.printer.Print(resp)
		},
	}
	flags.register(cmd)

	return cmd
}
