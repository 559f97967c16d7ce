package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cometbft/cometbft/rpc/client/http"
)

func newClient(url string) (*http.HTTP, error) {
	cli, err := http.New(url, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("new client err: %w", err)
	}
	return cli, nil
}

// abciQuery runs an app query and decodes its JSON value into out.
func abciQuery(ctx context.Context, url string, path string, data []byte, out any) error {
	cli, err := newClient(url)
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(ctx, path, data)
	if err != nil {
		return fmt.Errorf("request err: %w", err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s failed, code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, out)
}

func printJSON(v any) error {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(dat))
	return nil
}
