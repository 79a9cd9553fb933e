package main

import (
	"bufio"
	"os"
)

func writeProxiesToFile(filename string, proxies []ProxyCandidate) error {

	logInfof("Writing %d proxies to file %s", len(proxies), filename)

	file, err := os.Create(filename)
	if err != nil {
		logErrorf("error creating file %s: %v", filename, err)
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, proxy := range proxies {
		if _, err := writer.WriteString(string(proxy) + "\n"); err != nil {
			logErrorf("error writing to file %s: %v", filename, err)
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		logErrorf("error writing to file %s: %v", filename, err)
		return err
	}

	logInfof("Successfully wrote proxies to file %s", filename)

	return nil
}
