package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/urfave/cli"
)

// dump is the output of the `db dump` command.
type dump []*state.Request

func readFile(path string) (dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d := make(dump, 0)
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return d, err
}

// diff returns the list of fields differing between two requests with the
// same stage.
func diff(a, b *state.Request) []string {
	var res []string
	check := func(name string, eq bool, va, vb any) {
		if !eq {
			res = append(res, fmt.Sprintf("%s: %v vs %v", name, va, vb))
		}
	}
	check("requester", a.Requester.Equals(b.Requester), a.Requester, b.Requester)
	check("request_height", a.RequestHeight == b.RequestHeight, a.RequestHeight, b.RequestHeight)
	check("submit_merkle_height", a.SubmitMerkleHeight == b.SubmitMerkleHeight, a.SubmitMerkleHeight, b.SubmitMerkleHeight)
	check("merkle_root", a.MerkleRoot == b.MerkleRoot, a.MerkleRoot, b.MerkleRoot)
	check("threshold", a.Threshold == b.Threshold, a.Threshold, b.Threshold)
	check("service", a.Service == b.Service, a.Service, b.Service)
	check("input", string(a.Input) == string(b.Input) && (a.Input == nil) == (b.Input == nil), a.Input, b.Input)
	return res
}

func compare(w io.Writer, a, b string) error {
	dumpA, err := readFile(a)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", a, err)
	}
	dumpB, err := readFile(b)
	if err != nil {
		return fmt.Errorf("reading file %s: %w", b, err)
	}
	if len(dumpA) != len(dumpB) {
		return fmt.Errorf("dump files differ in size: %d vs %d", len(dumpA), len(dumpB))
	}
	fail := false
	for i := range dumpA {
		reqA, reqB := dumpA[i], dumpB[i]
		if reqA.Stage != reqB.Stage {
			return fmt.Errorf("stage mismatch: %d vs %d", reqA.Stage, reqB.Stage)
		}
		for _, d := range diff(reqA, reqB) {
			fail = true
			fmt.Fprintf(w, "stage %d: %s\n", reqA.Stage, d)
		}
	}
	if fail {
		return errors.New("fail")
	}
	return nil
}

func cliMain(c *cli.Context) error {
	a := c.Args().Get(0)
	b := c.Args().Get(1)
	if a == "" {
		return errors.New("no arguments given")
	}
	if b == "" {
		return errors.New("missing second argument")
	}
	return compare(c.App.Writer, a, b)
}

func main() {
	ctl := cli.NewApp()
	ctl.Name = "compare-dumps"
	ctl.Version = "1.0"
	ctl.Usage = "compare-dumps dumpA.json dumpB.json"
	ctl.Action = cliMain

	if err := ctl.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, ctl.Usage)
		os.Exit(1)
	}
}
