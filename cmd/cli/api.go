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
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/icon-project/btp2/common/cli"
	"github.com/icon-project/btp2/common/errors"
	"github.com/icon-project/btp2/common/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icon-project/btp-abi/abi"
	"github.com/icon-project/btp-abi/api"
	"github.com/icon-project/btp-abi/contract"
	"github.com/icon-project/btp-abi/database"
)

// ParseValue reads JSON arrays and objects given on the command line,
// numbers are kept as json.Number. Anything else is taken as a string.
func ParseValue(s string) (interface{}, error) {
	if !strings.HasPrefix(s, "[") && !strings.HasPrefix(s, "{") {
		return s, nil
	}
	d := json.NewDecoder(bytes.NewBufferString(s))
	d.UseNumber()
	var v interface{}
	if err := d.Decode(&v); err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "invalid value:%s err:%s", s, err.Error())
	}
	return v, nil
}

func GetValues(fs *pflag.FlagSet, name string) ([]interface{}, error) {
	l, err := fs.GetStringArray(name)
	if err != nil {
		return nil, err
	}
	r := make([]interface{}, len(l))
	for i, s := range l {
		if r[i], err = ParseValue(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func GetStringToInterface(fs *pflag.FlagSet, name string) (map[string]interface{}, error) {
	m, err := fs.GetStringToString(name)
	if err != nil {
		return nil, err
	}
	r := make(map[string]interface{})
	for k, v := range m {
		if r[k], err = ParseValue(v); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func ReadAndUnmarshal(file string, v interface{}) error {
	b, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func DecodeHex(s string) ([]byte, error) {
	b, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.IllegalArgumentError.Wrapf(err, "invalid hex:%s err:%s", s, err.Error())
	}
	return b, nil
}

func ClientPersistentPreRunE(vc *viper.Viper, c *api.Client) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := cli.ValidateFlagsWithViper(vc, cmd.Flags()); err != nil {
			return err
		}
		l := log.GlobalLogger()
		if lv, err := log.ParseLevel(vc.GetString("log_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel log_level err:%s", err.Error())
		} else {
			l.SetLevel(lv)
		}
		if lv, err := log.ParseLevel(vc.GetString("console_level")); err != nil {
			return errors.Wrapf(err, "fail to parseLevel console_level err:%s", err.Error())
		} else {
			l.SetConsoleLevel(lv)
		}
		dumpLogLevel, err := log.ParseLevel(vc.GetString("dump_log_level"))
		if err != nil {
			return errors.Wrapf(err, "fail to parseLevel dump_log_level err:%s", err.Error())
		} else {
			dumpLogLevel = api.EnsureTransportLogLevel(dumpLogLevel)
		}
		*c = *api.NewClient(vc.GetString("url"), dumpLogLevel, l)
		return nil
	}
}

func AddClientFlags(c *cobra.Command) {
	pFlags := c.PersistentFlags()
	pFlags.String("url", "http://localhost:8080", "server address")
	pFlags.String("log_level", "debug", "Global log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("console_level", "trace", "Console log level (trace,debug,info,warn,error,fatal,panic)")
	pFlags.String("dump_log_level", "trace", "client dump log level (trace,debug,info)")
}

func NewApiCommand(parentCmd *cobra.Command, parentVc *viper.Viper) (*cobra.Command, *viper.Viper) {
	rootCmd, rootVc := cli.NewCommand(parentCmd, parentVc, "api", "API cli")
	var (
		c api.Client
	)
	rootCmd.PersistentPreRunE = ClientPersistentPreRunE(rootVc, &c)
	AddClientFlags(rootCmd)
	cli.BindPFlags(rootVc, rootCmd.PersistentFlags())

	rootCmd.AddCommand(&cobra.Command{
		Use:   "selector SIGNATURE",
		Short: "Get function selector and event topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Selector(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	encodeCmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			types, err := fs.GetStringSlice("type")
			if err != nil {
				return err
			}
			values, err := GetValues(fs, "value")
			if err != nil {
				return err
			}
			b, err := c.Encode(types, values)
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
			types, err := cmd.Flags().GetStringSlice("type")
			if err != nil {
				return err
			}
			b, err := DecodeHex(args[0])
			if err != nil {
				return err
			}
			r, err := c.Decode(types, b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().StringSlice("type", nil, "type of each value, in order")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "contracts",
		Short: "Get list of contract names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Contracts()
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "contract NAME",
		Short: "Get contract information",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Contract(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	registerCmd := &cobra.Command{
		Use:   "register NAME",
		Short: "Register contract ABI",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(cmd.Flag("abi").Value.String())
			if err != nil {
				return err
			}
			r, err := c.RegisterContract(args[0], b)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(registerCmd)
	registerCmd.Flags().String("abi", "", "ABI json file")
	cli.MarkAnnotationRequired(registerCmd.Flags(), "abi")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "openapi NAME",
		Short: "Get OpenAPI document of contract",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.OpenAPISpec(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	packCmd := &cobra.Command{
		Use:   "pack NAME METHOD",
		Short: "Pack call data",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := contract.Params{}
			if raw := cmd.Flag("raw").Value.String(); len(raw) > 0 {
				if err := ReadAndUnmarshal(raw, &params); err != nil {
					return err
				}
			}
			m, err := GetStringToInterface(cmd.Flags(), "param")
			if err != nil {
				return err
			}
			for k, v := range m {
				params[k] = v
			}
			b, err := c.Pack(args[0], args[1], params)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, contract.Bytes(b))
		},
	}
	rootCmd.AddCommand(packCmd)
	packFlags := packCmd.Flags()
	packFlags.StringToString("param", nil, "key=value, method parameters, overwrites '--raw'")
	packFlags.String("raw", "", "parameters json file")

	unpackCmd := &cobra.Command{
		Use:   "unpack NAME METHOD HEX",
		Short: "Unpack return data, or call data with '--input'",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := DecodeHex(args[2])
			if err != nil {
				return err
			}
			var r contract.Params
			if input, _ := cmd.Flags().GetBool("input"); input {
				r, err = c.UnpackInput(args[0], args[1], b)
			} else {
				r, err = c.Unpack(args[0], args[1], b)
			}
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(unpackCmd)
	unpackCmd.Flags().Bool("input", false, "data is call data")

	eventCmd := &cobra.Command{
		Use:   "event NAME HEX",
		Short: "Decode event log",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			b, err := DecodeHex(args[1])
			if err != nil {
				return err
			}
			l, err := fs.GetStringSlice("topic")
			if err != nil {
				return err
			}
			req := &api.EventRequest{Data: b}
			req.Event, _ = fs.GetString("event")
			for _, s := range l {
				var t abi.Topic
				if err = t.UnmarshalText([]byte(s)); err != nil {
					return errors.IllegalArgumentError.Wrapf(err, "invalid topic:%s err:%s", s, err.Error())
				}
				req.Topics = append(req.Topics, t)
			}
			r, err := c.DecodeEvent(args[0], req)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(eventCmd)
	eventFlags := eventCmd.Flags()
	eventFlags.StringSlice("topic", nil, "topics of log, in order")
	eventFlags.String("event", "", "name of anonymous event")
	cli.MarkAnnotationRequired(eventFlags, "topic")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "lookup SELECTOR",
		Short: "Find signatures of selector or topic",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.Lookup(args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	})

	addSignatureCmd := &cobra.Command{
		Use:   "add-signature SIGNATURE",
		Short: "Register signature",
		Args:  cli.ArgsWithDefaultErrorFunc(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.RegisterSignature(cmd.Flag("kind").Value.String(), args[0])
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(addSignatureCmd)
	addSignatureCmd.Flags().String("kind", "function", "kind of signature (function,event)")

	signaturesCmd := &cobra.Command{
		Use:   "signatures",
		Short: "Get page of signatures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			p := database.Pageable{}
			p.Page, _ = fs.GetUint("page")
			p.Size, _ = fs.GetUint("size")
			p.Sort, _ = fs.GetString("sort")
			r, err := c.Signatures(cmd.Flag("kind").Value.String(), p)
			if err != nil {
				return err
			}
			return cli.JsonPrettyPrintln(os.Stdout, r)
		},
	}
	rootCmd.AddCommand(signaturesCmd)
	signaturesFlags := signaturesCmd.Flags()
	signaturesFlags.String("kind", "", "kind of signature (function,event)")
	signaturesFlags.Uint("page", 0, "page number, starts from 0")
	signaturesFlags.Uint("size", 20, "page size")
	signaturesFlags.String("sort", "", "sort, for example 'text desc,id'")
	return rootCmd, rootVc
}
