package main

// General API documentation for swaggo. Run `swag init -g cmd/inpaintd/main.go`
// and build with -tags=swagger to serve it.
//
// @title           inpaintd API
// @version         1.0
// @description     HTTP API for image inpainting with a fixed center mask.
//
// @BasePath  /
//
// @schemes http
