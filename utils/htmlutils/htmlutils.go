// Copyright 2025 The Nearby Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils turns the HTML snippets returned by places services
// (mostly attributions) into plain text.
package htmlutils

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Node2string appends the text content of n to sb, one space between text
// nodes. Anchors with an href are rendered as "text <href>".
func Node2string(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		tmp := strings.Join(strings.Fields(n.Data), " ")
		if tmp == "" {
			return
		}

		if sb.Len() != 0 {
			sb.WriteByte(' ')
		}

		sb.WriteString(tmp)
	case html.ElementNode:
		if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}

		if n.DataAtom == atom.A {
			if href := attr(n, "href"); href != "" {
				fmt.Fprintf(sb, " <%s>", href)
			}
		}
	default:
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			Node2string(child, sb)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}

	return ""
}

// PlainText renders an HTML fragment as a single line of text.
func PlainText(fragment string) (string, error) {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " "), nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parsing HTML fragment: %w", err)
	}

	sb := strings.Builder{}
	for _, n := range nodes {
		Node2string(n, &sb)
	}

	return sb.String(), nil
}

// PlainTexts applies PlainText to every fragment, dropping empty results.
// The first parse error aborts.
func PlainTexts(fragments []string) ([]string, error) {
	var ret []string

	for _, f := range fragments {
		s, err := PlainText(f)
		if err != nil {
			return nil, err
		}

		if s != "" {
			ret = append(ret, s)
		}
	}

	return ret, nil
}
