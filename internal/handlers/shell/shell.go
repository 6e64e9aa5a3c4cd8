package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

type Shell struct{}

type Cmd struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Dir     string            `json:"dir"`
	Env     map[string]string `json:"env"`
}

func decode(payload json.RawMessage) (Cmd, error) {
	var c Cmd
	if err := json.Unmarshal(payload, &c); err != nil {
		return Cmd{}, fmt.Errorf("invalid shell payload: %w", err)
	}
	if c.Command == "" {
		return Cmd{}, errors.New("command is required")
	}
	return c, nil
}

func (h Shell) Validate(payload json.RawMessage) error {
	_, err := decode(payload)
	return err
}

func (h Shell) Handle(ctx context.Context, payload json.RawMessage) error {
	c, err := decode(payload)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range c.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("shell error: %v; out=%s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
