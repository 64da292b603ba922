// Package maps stores reusable Cell War map templates on disk.
//
// The maps package handles:
//   - Loading map templates from JSON files
//   - Validating grids before they are cached or saved
//   - Listing the maps available for game creation
//
// Map Format:
//
// A map is a JSON file named <id>.json in the map directory:
//
//	{
//	  "name": "Twin Lakes",
//	  "description": "Two lakes split the board",
//	  "rules": "flat",
//	  "cells": [[{"x":0,"y":0,"type":"plain"}, ...], ...]
//	}
//
// Cells use the same shape as the game state wire format. Only x and y are
// required; type defaults to plain. The optional rules field picks the
// ruleset used when a game is created from the map without naming one.
//
// Usage:
//
//	manager, err := maps.NewManager("maps")
//	tmpl, err := manager.Load("twin_lakes")
//	svc := service.NewGameService(registry.New(), manager)
package maps
