package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/KamdynS/mcpchat/agent/core"
	"github.com/KamdynS/mcpchat/llm"
	"github.com/charmbracelet/lipgloss"
)

// console writes user-facing output. Colors are only emitted when out is a
// terminal.
type console struct {
	out io.Writer

	banner lipgloss.Style
	prompt lipgloss.Style
	trace  lipgloss.Style
	answer lipgloss.Style
	err    lipgloss.Style
}

func newConsole(out io.Writer) *console {
	r := lipgloss.NewRenderer(out)
	return &console{
		out:    out,
		banner: r.NewStyle().Foreground(lipgloss.Color("5")).Bold(true),
		prompt: r.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		trace:  r.NewStyle().Foreground(lipgloss.Color("3")),
		answer: r.NewStyle(),
		err:    r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func (c *console) Connected(names []string) {
	fmt.Fprintf(c.out, "\n%s\n", c.banner.Render(fmt.Sprintf("Connected to server with tools: [%s]", strings.Join(names, " "))))
}

func (c *console) Intro() {
	fmt.Fprintf(c.out, "\n%s\n", c.banner.Render("MCP Client Started!"))
	fmt.Fprintln(c.out, "Type your queries or 'quit' to exit.")
}

func (c *console) Prompt() {
	fmt.Fprintf(c.out, "\n%s", c.prompt.Render("Query: "))
}

// ToolCall prints the one-line trace for a tool invocation
func (c *console) ToolCall(call llm.ToolCallRequest) {
	args, err := json.Marshal(call.Arguments)
	if err != nil || call.Arguments == nil {
		args = []byte("{}")
	}
	fmt.Fprintln(c.out, c.trace.Render(fmt.Sprintf("[Called tool %s with args %s]", call.Name, args)))
}

func (c *console) Answer(text string) {
	fmt.Fprintf(c.out, "\n%s\n", c.answer.Render(text))
}

func (c *console) Error(err error) {
	fmt.Fprintf(c.out, "\n%s\n", c.err.Render("Error: "+err.Error()))
}

// observer returns the run observer that prints tool traces
func (c *console) observer() core.Observer {
	return core.ObserverFuncs{
		ToolCall: c.ToolCall,
	}
}
