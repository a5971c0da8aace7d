// Command fieldmap конвертирует полевые анкеты в OSM XML / GeoJSON, сопоставляет их
// с эталоном и собирает офлайн подложки.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
