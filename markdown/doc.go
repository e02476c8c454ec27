// Package markdown renders documentation pages with goldmark. The transform
// set is fixed: tables, strikethrough, linkify, footnotes, definition lists,
// abbreviations, task lists, heading attributes, syntax highlighted code,
// named fence transforms and heading permalinks.
package markdown
