package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Comcast/pcom/assembly"
	"github.com/Comcast/pcom/contract"
	"github.com/Comcast/pcom/discovery"
	"github.com/Comcast/pcom/tools"

	"github.com/jsccast/yaml"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pcomctl",
	Short:   "Poke at a pcomd and the things it reads and writes",
	Version: version,
}

// readJSONish reads YAML or JSON from the file ("-" for stdin) and
// reencodes it as JSON.
func readJSONish(filename string) ([]byte, error) {
	var (
		bs  []byte
		err error
	)
	if filename == "-" {
		bs, err = ioutil.ReadAll(os.Stdin)
	} else {
		bs, err = tools.ReadFileWithInlines(filename)
	}
	if err != nil {
		return nil, err
	}
	var x interface{}
	if err = yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	return json.Marshal(&x)
}

func output(filename string) (io.WriteCloser, error) {
	if filename == "" || filename == "-" {
		return os.Stdout, nil
	}
	return os.Create(filename)
}

func printJSON(x interface{}) error {
	js, err := json.MarshalIndent(x, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n", js)
	return nil
}

// --- render ---

var renderOpts struct {
	format    string
	templates bool
	highlight string
	out       string
}

var renderCmd = &cobra.Command{
	Use:   "render [assembly.json]",
	Short: "Draw an assembly as Graphviz, Mermaid, or PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	js, err := readJSONish(args[0])
	if err != nil {
		return err
	}
	var a assembly.Assembly
	if err = json.Unmarshal(js, &a); err != nil {
		return err
	}

	dotOpts := &tools.DotOpts{
		Templates: renderOpts.templates,
		Highlight: renderOpts.highlight,
	}

	switch renderOpts.format {
	case "png":
		basename := strings.TrimSuffix(renderOpts.out, ".png")
		if basename == "" {
			basename = "assembly"
		}
		filename, err := tools.PNG(&a, basename, dotOpts)
		if err == nil {
			fmt.Printf("%s\n", filename)
		}
		return err
	case "dot", "mermaid":
	default:
		return fmt.Errorf("unknown format %q", renderOpts.format)
	}

	w, err := output(renderOpts.out)
	if err != nil {
		return err
	}
	if renderOpts.format == "dot" {
		err = tools.Dot(&a, w, dotOpts)
	} else {
		err = tools.Mermaid(&a, w, &tools.MermaidOpts{
			ShowTemplates: renderOpts.templates,
			ResourceFill:  "#bcf2db",
		})
	}
	if w != os.Stdout {
		if e := w.Close(); err == nil {
			err = e
		}
	}
	return err
}

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Check or document catalog files",
}

var catalogCSS []string

var catalogHTMLCmd = &cobra.Command{
	Use:   "html [catalog.yaml]",
	Short: "Render a catalog file as an HTML page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tools.ReadAndRenderCatalogPage(args[0], catalogCSS, os.Stdout)
	},
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check [catalog.yaml]",
	Short: "Report what a catalog file offers and what's wrong with it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bs, err := tools.ReadFileWithInlines(args[0])
		if err != nil {
			return err
		}
		f, err := discovery.ParseFile(bs)
		if err != nil {
			return err
		}
		a := tools.Analyze(f)
		if err = printJSON(a); err != nil {
			return err
		}
		if 0 < len(a.Errors) {
			return fmt.Errorf("%d problems", len(a.Errors))
		}
		return nil
	},
}

// --- op ---

var (
	assemblerURL string
	opTimeout    time.Duration
)

var opCmd = &cobra.Command{
	Use:   "op [op.json]",
	Short: "Send an op to a pcomd (\"-\" reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runOp,
}

func runOp(cmd *cobra.Command, args []string) error {
	js, err := readJSONish(args[0])
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(assemblerURL, "/")+"/api", bytes.NewReader(js))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var x interface{}
	if err = json.Unmarshal(body, &x); err != nil {
		return fmt.Errorf("%s: %s", resp.Status, body)
	}
	if err = printJSON(x); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", resp.Status)
	}
	return nil
}

// --- discover ---

var (
	discoveryURL   string
	discoveryScope []string
)

var discoverCmd = &cobra.Command{
	Use:   "discover [demand.yaml]",
	Short: "Ask a discovery service for candidates for a demand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		js, err := readJSONish(args[0])
		if err != nil {
			return err
		}
		demand := &contract.Contract{}
		if err = json.Unmarshal(js, demand); err != nil {
			return err
		}
		client, err := discovery.NewClient(strings.TrimSuffix(discoveryURL, "/"))
		if err != nil {
			return err
		}
		client.Timeout = opTimeout
		cs, err := client.Discover(context.Background(), demand, discoveryScope)
		if err != nil {
			return err
		}
		return printJSON(cs)
	},
}

func init() {
	f := renderCmd.Flags()
	f.StringVarP(&renderOpts.format, "format", "f", "dot", "dot, mermaid, or png")
	f.BoolVarP(&renderOpts.templates, "templates", "t", false, "include templates")
	f.StringVar(&renderOpts.highlight, "highlight", "", "pointer to highlight")
	f.StringVarP(&renderOpts.out, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(renderCmd)

	catalogHTMLCmd.Flags().StringSliceVar(&catalogCSS, "css", nil, "CSS files for the page")
	catalogCmd.AddCommand(catalogHTMLCmd, catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)

	rootCmd.PersistentFlags().DurationVar(&opTimeout, "timeout", 10*time.Second, "request timeout")

	opCmd.Flags().StringVarP(&assemblerURL, "url", "u", "http://localhost:8080", "pcomd assembler URL")
	rootCmd.AddCommand(opCmd)

	discoverCmd.Flags().StringVarP(&discoveryURL, "url", "u", "http://localhost:8081", "discovery service URL")
	discoverCmd.Flags().StringSliceVar(&discoveryScope, "scope", nil, "devices to consider")
	rootCmd.AddCommand(discoverCmd)
}
