package extractor

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Selectors and input values are embedded into injected scripts as JSON
// string literals only. A selector containing quotes must stay data, not
// become script.
func jsString(value string) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		// json.Marshal of a string cannot fail; keep a safe fallback anyway.
		return `""`
	}
	return string(encoded)
}

// buildClickScript clicks the first element matching the selector. A
// selector resolving to no element is a silent no-op: the replay still
// advances.
func buildClickScript(selector string) string {
	return `() => {
	var el = document.querySelector(` + jsString(selector) + `);
	if (el) { el.click(); }
}`
}

// buildInputScript sets the matched element's value and raises a change
// event so framework listeners observe the edit. Missing elements are
// skipped silently.
func buildInputScript(selector, value string) string {
	return `() => {
	var el = document.querySelector(` + jsString(selector) + `);
	if (el) {
		el.value = ` + jsString(value) + `;
		el.dispatchEvent(new Event('change', { bubbles: true }));
	}
}`
}

// buildExtractionScript walks the subtree of the element matching the
// selector and collects its visible text:
//
//   - script/style/noscript subtrees contribute nothing
//   - elements with computed display:none or visibility:hidden contribute
//     nothing
//   - form controls contribute their current value, select contributes the
//     selected option's label, br contributes a newline
//   - block-level containers (block/flex/grid/table-row) newline-join their
//     children and are wrapped in newlines; inline containers space-join
//
// Blank-line runs are collapsed and the result trimmed before returning.
func buildExtractionScript(selector string) string {
	return `() => {
	var root = document.querySelector(` + jsString(selector) + `);
	if (!root) { return ""; }
	function textOf(node) {
		if (node.nodeType === Node.TEXT_NODE) { return node.textContent; }
		if (node.nodeType !== Node.ELEMENT_NODE) { return ""; }
		var tag = node.tagName.toLowerCase();
		if (tag === "script" || tag === "style" || tag === "noscript") { return ""; }
		var cs = window.getComputedStyle(node);
		if (cs.display === "none" || cs.visibility === "hidden") { return ""; }
		if (tag === "br") { return "\n"; }
		if (tag === "input") {
			var type = (node.getAttribute("type") || "text").toLowerCase();
			if (type === "hidden" || type === "submit" || type === "button" || type === "image") { return ""; }
			return node.value || "";
		}
		if (tag === "textarea") { return node.value || ""; }
		if (tag === "select") {
			var opt = node.options[node.selectedIndex];
			return opt ? opt.label : "";
		}
		var block = cs.display === "block" || cs.display === "flex" ||
			cs.display === "grid" || cs.display === "table-row";
		var parts = [];
		for (var i = 0; i < node.childNodes.length; i++) {
			var piece = textOf(node.childNodes[i]);
			if (piece !== "") { parts.push(piece); }
		}
		var joined = parts.join(block ? "\n" : " ");
		return block ? "\n" + joined + "\n" : joined;
	}
	return textOf(root);
}`
}

var blankLineRun = regexp.MustCompile(`\n[ \t]*(\n[ \t]*)+`)
var trailingSpace = regexp.MustCompile(`[ \t]+\n`)

// NormalizeText collapses runs of blank lines to a single newline, strips
// trailing whitespace per line and trims the whole text.
func NormalizeText(text string) string {
	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankLineRun.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
