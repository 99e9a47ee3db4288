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
	"os"

	"github.com/icon-project/btp2/common/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/api"
	"github.com/icon-project/btp-abi/contract"
)

func readContract(file string) (*contract.Contract, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	return contract.Parse(b)
}

func NewAbiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "abi", "ABI codec without server")

	selectorRunE := func(cmd *cobra.Command, args []string) error {
		name, types, err := abi.ParseSignature(args[0])
		if err != nil {
			return err
		}
		sig := abi.Signature(name, types)
		return cli.JsonPrettyPrintln(os.Stdout, &api.SelectorResponse{
			Signature: sig,
			Selector:  abi.FunctionSelector(sig),
			Topic:     abi.EventTopic(sig),
		})
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "selector SIGNATURE",
		Short: "Compute function selector and event topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE:  selectorRunE,
	}, &cobra.Command{
		Use:   "topic SIGNATURE",
		Short: "Compute function selector and event topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE:  selectorRunE,
	})

	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			l, err := fs.GetStringSlice("type")
			if err != nil {
				return err
			}
			types, err := abi.ParseTypes(l)
			if err != nil {
				return err
			}
			values, err := GetValues(fs, "value")
			if err != nil {
				return err
			}
			b, err := contract.EncodeJSON(types, values)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, contract.Bytes(b))
		},
	}
	rootCmd.AddCommand(encodeCmd)
	encodeFlags := encodeCmd.Flags()
	encodeFlags.StringSlice("type", nil, "type of each value, in order")
	encodeFlags.StringArray("value", nil, "value, JSON for array")

	decodeCmd := &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := cmd.Flags().GetStringSlice("type")
			if err != nil {
				return err
			}
			types, err := abi.ParseTypes(l)
			if err != nil {
				return err
			}
			b, err := DecodeHex(args[0])
			if err != nil {
				return err
			}
			values, err := contract.DecodeJSON(types, b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, values)
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringSlice("type", nil, "type of each value, in order")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "signatures ABI_FILE",
		Short: "Print signatures of methods and events",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readContract(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, api.ContractInfoOf(args[0], c))
		},
	})

	packCmd := &cobra.Command{
		Use:   "pack ABI_FILE METHOD",
		Short: "Pack call data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readContract(args[0])
			if err != nil {
				return err
			}
			params, err := GetStringToInterface(cmd.Flags(), "param")
			if err != nil {
				return err
			}
			b, err := c.Pack(args[1], params)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, contract.Bytes(b))
		},
	}
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().StringToString("param", nil, "key=value, method parameters")

	unpackCmd := &cobra.Command{
		Use:   "unpack ABI_FILE HEX",
		Short: "Unpack call data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := readContract(args[0])
			if err != nil {
				return err
			}
			b, err := DecodeHex(args[1])
			if err != nil {
				return err
			}
			f, params, err := c.UnpackInput(b)
			if err != nil {
				return err
			}
			if params, err = contract.JSONParamsOf(f.Inputs(), params); err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, &api.EventResponse{
				Signature: f.Signature(),
				Params:    params,
			})
		},
	}
	rootCmd.AddCommand(unpackCmd)
	return rootCmd, rootVc
}
