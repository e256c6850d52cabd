package tagging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"geniereport/internal/domain"
)

// PromptDecider asks on out and reads one line per alert from in. A blank or
// unrecognised answer selects the first choice. Running out of input is an
// error.
func PromptDecider(in io.Reader, out io.Writer) DecideFunc {
	scanner := bufio.NewScanner(in)
	return func(ctx context.Context, alert domain.Alert, choices []string) (Decision, error) {
		fmt.Fprintf(out, "Alert %s: %s\n", alert.TinyID, alert.Message)
		fmt.Fprintf(out, "  %s\n", AlertLink(alert.ID))
		fmt.Fprintln(out, "Which tag would you like to add?")
		for i, choice := range choices {
			fmt.Fprintf(out, "%d. %s\n", i+1, choice)
		}
		fmt.Fprintf(out, "Enter a number (default %s): ", choices[0])

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return Decision{}, fmt.Errorf("reading answer: %w", err)
			}
			return Decision{}, fmt.Errorf("reading answer: %w", io.EOF)
		}
		return Decision{Tag: pick(scanner.Text(), choices)}, nil
	}
}

func pick(answer string, choices []string) string {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1]
	}
	for _, c := range choices {
		if strings.EqualFold(answer, c) {
			return c
		}
	}
	return choices[0]
}
