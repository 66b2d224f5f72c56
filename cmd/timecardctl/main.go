package main

import "github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/cli"

func main() {
	cli.Execute()
}
