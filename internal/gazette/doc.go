// Package gazette scans the Canada Gazette RSS feeds and records the
// regulations they announce. Part I notices are proposed regulations and
// Part II notices are enacted ones.
package gazette
