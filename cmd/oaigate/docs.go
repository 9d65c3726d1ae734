package main

// General API documentation for swaggo. Run `swag init -g cmd/oaigate/docs.go -o docs` to regenerate docs.
//
// @title           oaigate API
// @version         1.0
// @description     OpenAI-compatible completions, chat completions and model listing over pluggable backends.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
