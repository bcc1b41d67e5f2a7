// Package main is the entry point of gobb. gobb evaluates the admin and
// category privileges of a forum, builds the category pickers shown to its
// users and serves both through a fiber JSON API and a websocket event API.
// State is kept in MySQL, PostgreSQL or SQLite through gorm.
package main
