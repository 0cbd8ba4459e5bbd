/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
catalogmesh-cli talks to one node's leader-only HTTP surface: upload a
file, poll a similarity search to completion, list confirmed documents,
and print cluster status.

Usage:

	catalogmesh-cli upload <path>
	catalogmesh-cli search <prompt> [--top-k N]
	catalogmesh-cli documents [--collation binary|nocase|unicode]
	catalogmesh-cli status
*/
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"catalogmesh/pkg/cli"
)

func main() {
	addr := os.Getenv("CATALOGMESH_ADDR")
	if addr == "" {
		addr = "http://127.0.0.1:5000"
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "upload":
		err = runUpload(addr, os.Args[2:])
	case "search":
		err = runSearch(addr, os.Args[2:])
	case "documents":
		err = runDocuments(addr, os.Args[2:])
	case "status":
		err = runStatus(addr)
	default:
		cli.PrintError("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if ce, ok := err.(*cli.CLIError); ok {
			ce.Print()
			ce.Exit()
		}
		cli.PrintError("%s", err.Error())
		os.Exit(1)
	}
}

func printUsage() {
	h := cli.NewHelpFormatter("catalogmesh-cli", "1.0.0")
	h.AddCommand(cli.Command{Name: "upload", Description: "upload a file to the cluster leader", Usage: "catalogmesh-cli upload <path>"})
	h.AddCommand(cli.Command{Name: "search", Description: "run a similarity search and poll for results", Usage: "catalogmesh-cli search <prompt> [--top-k N]"})
	h.AddCommand(cli.Command{Name: "documents", Description: "list confirmed documents", Usage: "catalogmesh-cli documents [--collation binary|nocase|unicode]"})
	h.AddCommand(cli.Command{Name: "status", Description: "print cluster status", Usage: "catalogmesh-cli status"})
	h.PrintUsage()
}

func runUpload(addr string, args []string) error {
	if len(args) == 0 {
		return cli.ErrMissingArgument("path", "catalogmesh-cli upload <path>")
	}
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return err
	}
	w.Close()

	sp := cli.NewSpinner("uploading " + filepath.Base(path))
	sp.Start()

	resp, err := http.Post(addr+"/upload", w.FormDataContentType(), &body)
	if err != nil {
		sp.StopWithError("upload failed")
		return cli.ErrConnectionFailed(addr, "", err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		sp.StopWithError("upload failed")
		return err
	}
	if resp.StatusCode != http.StatusOK {
		sp.StopWithError("upload rejected")
		return fmt.Errorf("%v", out["error"])
	}
	sp.StopWithSuccess("pending approval: " + fmt.Sprint(out["doc_id"]))
	cli.KeyValue("required_votes", fmt.Sprint(out["required_votes"]), 16)
	cli.KeyValue("total_peers", fmt.Sprint(out["total_peers"]), 16)
	return nil
}

func runSearch(addr string, args []string) error {
	if len(args) == 0 {
		return cli.ErrMissingArgument("prompt", "catalogmesh-cli search <prompt> [--top-k N]")
	}
	prompt := args[0]
	topK := 5
	for i, a := range args {
		if a == "--top-k" && i+1 < len(args) {
			if v, err := strconv.Atoi(args[i+1]); err == nil {
				topK = v
			}
		}
	}

	body, _ := json.Marshal(map[string]any{"prompt": prompt, "top_k": topK})
	resp, err := http.Post(addr+"/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return cli.ErrConnectionFailed(addr, "", err)
	}
	defer resp.Body.Close()
	var init struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&init); err != nil {
		return err
	}

	sp := cli.NewSpinner("searching")
	sp.Start()
	defer sp.Stop()

	for i := 0; i < 50; i++ {
		pollResp, err := http.Get(fmt.Sprintf("%s/search/%s?token=%s", addr, init.ID, init.Token))
		if err != nil {
			sp.StopWithError("search failed")
			return err
		}
		var poll struct {
			Status  string `json:"status"`
			Results []struct {
				CID      string  `json:"cid"`
				Filename string  `json:"filename"`
				Distance float64 `json:"distance"`
			} `json:"results"`
		}
		json.NewDecoder(pollResp.Body).Decode(&poll)
		pollResp.Body.Close()

		if poll.Status != "processing" {
			sp.StopWithSuccess("search complete")
			t := cli.NewTable("CID", "FILENAME", "DISTANCE")
			for _, r := range poll.Results {
				t.AddRow(r.CID, r.Filename, fmt.Sprintf("%.4f", r.Distance))
			}
			t.Print()
			return nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	sp.StopWithWarning("search still processing, giving up")
	return nil
}

func runDocuments(addr string, args []string) error {
	url := addr + "/documents"
	for i, a := range args {
		if a == "--collation" && i+1 < len(args) {
			url += "?collation=" + args[i+1]
		}
	}
	resp, err := http.Get(url)
	if err != nil {
		return cli.ErrConnectionFailed(addr, "", err)
	}
	defer resp.Body.Close()

	var docs []struct {
		CID      string `json:"cid"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return err
	}

	t := cli.NewTable("CID", "FILENAME")
	for _, d := range docs {
		t.AddRow(d.CID, d.Filename)
	}
	t.Print()
	return nil
}

func runStatus(addr string) error {
	resp, err := http.Get(addr + "/status")
	if err != nil {
		return cli.ErrConnectionFailed(addr, "", err)
	}
	defer resp.Body.Close()

	var status map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return err
	}
	var content bytes.Buffer
	for k, v := range status {
		fmt.Fprintf(&content, "%s: %v\n", k, v)
	}
	cli.Box("cluster status", content.String())
	return nil
}
