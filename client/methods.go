package client

import (
	"context"
	"fmt"

	"github.com/smnsjas/go-msfrpc/codec"
)

// Version describes the framework behind the RPC server.
type Version struct {
	Version string
	Ruby    string
	API     string
}

// CoreVersion calls core.version.
func (c *Client) CoreVersion(ctx context.Context) (Version, error) {
	resp, err := c.callChecked(ctx, "core.version")
	if err != nil {
		return Version{}, err
	}

	var v Version
	v.Version, _ = resp.GetStr("version")
	v.Ruby, _ = resp.GetStr("ruby")
	v.API, _ = resp.GetStr("api")
	return v, nil
}

// ModuleExploits calls module.exploits and returns the exploit module names.
func (c *Client) ModuleExploits(ctx context.Context) ([]string, error) {
	return c.stringList(ctx, "modules", "module.exploits")
}

// ModuleCompatiblePayloads calls module.compatible_payloads for an exploit
// module and returns the payload names.
func (c *Client) ModuleCompatiblePayloads(ctx context.Context, module string) ([]string, error) {
	return c.stringList(ctx, "payloads", "module.compatible_payloads", module)
}

// callChecked is Call followed by a check for a server fault.
func (c *Client) callChecked(ctx context.Context, method string, args ...any) (codec.Value, error) {
	resp, err := c.Call(ctx, method, args...)
	if err != nil {
		return codec.Value{}, err
	}
	if err := codec.CheckFault(resp); err != nil {
		return codec.Value{}, fmt.Errorf("%s: %w", method, err)
	}
	return resp, nil
}

func (c *Client) stringList(ctx context.Context, key, method string, args ...any) ([]string, error) {
	resp, err := c.callChecked(ctx, method, args...)
	if err != nil {
		return nil, err
	}

	field, ok := resp.Get(key)
	if !ok {
		return nil, fmt.Errorf("%s: response has no %q field", method, key)
	}
	names, ok := field.Strings()
	if !ok {
		return nil, fmt.Errorf("%s: %q is %s, want array of strings", method, key, field.Kind())
	}
	return names, nil
}
