/*
 * Copyright 2023 ICON Foundation
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

package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"github.com/icon-project/btp2/common/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/btp-abi/api"
)

func NewStreamCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "stream", "Stream cli")
	var (
		c api.Client
	)
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode hex lines of input over websocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := cmd.Flags().GetStringSlice("type")
			if err != nil {
				return err
			}
			var r io.Reader = os.Stdin
			if file := cmd.Flag("file").Value.String(); len(file) > 0 {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			cli.OnInterrupt(cancel)
			s, err := c.DecodeSession(ctx, types)
			if err != nil {
				return err
			}
			defer s.Close()

			scanner := bufio.NewScanner(r)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
			for scanner.Scan() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if len(line) == 0 {
					continue
				}
				var v interface{}
				if b, err := DecodeHex(line); err != nil {
					v = api.NewErrorResponse(err)
				} else if values, err := s.Decode(b); err != nil {
					if er, ok := err.(*api.ErrorResponse); ok {
						v = er
					} else {
						return err
					}
				} else {
					v = values
				}
				if err = cli.JsonPrettyPrintln(os.Stdout, v); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeFlags := decodeCmd.Flags()
	decodeFlags.StringSlice("type", nil, "type of each value, in order")
	decodeFlags.String("file", "", "file of hex lines, stdin if not given")
	cli.MarkAnnotationRequired(decodeFlags, "type")
	return rootCmd, rootVc
}
