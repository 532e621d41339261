package main

import "github.com/devsapp/serverless-automl-api/cmd/automl/cmd"

func main() {
	cmd.Execute()
}
