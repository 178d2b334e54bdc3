package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/syntlyx/drupal-lsp-server/pkg/reference"
)

// Feeds lines through every reference shape and prints what matched.
// Reads stdin, or a built-in sample when stdin is a terminal with no
// piped input and no arguments.
func main() {
	var lines []string
	if len(os.Args) > 1 {
		lines = os.Args[1:]
	} else if stat, _ := os.Stdin.Stat(); stat.Mode()&os.ModeCharDevice == 0 {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
	} else {
		lines = []string{
			`$mailer = \Drupal::service('plugin.manager.mail');`,
			`$cache = $container->get('cache.backend.database');`,
			`    arguments: ['@entity_type.manager', '@logger.factory']`,
			`$url = Url::fromRoute('system.admin');`,
			`  route_name: system.admin_config`,
		}
	}

	all := []struct {
		label  string
		shapes []reference.Shape
	}{
		{"service", reference.ServiceShapes},
		{"route", reference.RouteShapes},
		{"link", reference.LinkShapes},
	}

	for _, line := range lines {
		fmt.Printf("Line: %q\n", line)
		for _, group := range all {
			for _, m := range reference.Scan(group.shapes, line) {
				marker := strings.Repeat(" ", m.Start) + strings.Repeat("^", max(m.End-m.Start, 1))
				fmt.Printf("  [%s/%s] %q at %d..%d\n", group.label, m.Shape, m.Identifier, m.Start, m.End)
				fmt.Printf("        %s\n", marker)
			}
		}
	}
}
