// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/qcache/internal/backend"
	"github.com/staranto/qcache/internal/meta"
	"github.com/staranto/qcache/internal/output"
)

const bashCompletionScript = `# bash completion for qcache
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_qcache()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "%[1]s completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--attrs -a --color -c --filter -f --output -o --sort -s --titles -t --examples"
    local source="--cache --cache-dir --driver -d --dsn --ttl"

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "%[2]s" -- "$cur") )
            return 0
            ;;
        --driver|-d)
            COMPREPLY=( $(compgen -W "%[3]s" -- "$cur") )
            return 0
            ;;
        --cache)
            COMPREPLY=( $(compgen -W "true false" -- "$cur") )
            return 0
            ;;
    esac

    case "$cmd" in
        run|sql|path)
            local opts="$common $source --refresh"
            if [[ "$cur" != -* && ${COMP_CWORD} -eq 2 ]]; then
                COMPREPLY=( $(compgen -W "%[4]s" -- "$cur") )
                return 0
            fi
            ;;
        inspect)
            local opts="$common $source"
            if [[ "$cur" != -* ]]; then
                COMPREPLY=( $(compgen -W "%[4]s" -f -- "$cur") )
                return 0
            fi
            ;;
        ls)
            local opts="$common $source"
            ;;
        purge)
            local opts="$common $source --hours"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    return 0
}

complete -F _qcache qcache
`

const zshCompletionScript = `#compdef qcache

_qcache() {
  local -a cmds
  cmds=(
%[1]s
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-a --attrs)'{-a,--attrs}'[columns to include]:attrs'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(%[2]s)'
  '(-s --sort)'{-s,--sort}'[sort columns]:columns'
  '(-t --titles)'{-t,--titles}'[show titles]'
  '--examples[show examples]'
  '--cache[cache policy]:policy:(true false)'
  '--cache-dir[cache root directory]:dir:_directories'
  '(-d --driver)'{-d,--driver}'[database driver]:driver:(%[3]s)'
  '--dsn[connection string]:dsn'
  '--ttl[cache entry lifetime]:ttl'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'qcache commands' cmds
    return
  fi

  case $words[2] in
    run|sql|path)
      _arguments -C $common '--refresh[re-execute and rewrite the cache]' '1:query:(%[4]s)' '*:argument'
      ;;
    inspect)
      _arguments -C $common '1:query or file:_alternative "queries:query:(%[4]s)" "files:file:_files -g \*.parquet"' '*:argument'
      ;;
    purge)
      _arguments -C $common '--hours[age in hours]:hours'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _qcache qcache
`

// CompletionScript renders the completion script for shell, listing the
// commands of root and the queries defined in the config file.
func CompletionScript(root *cli.Command, m meta.Meta, shell string) (string, error) {
	var queries []string
	if defs, err := m.Config.Queries(); err == nil {
		for n := range defs {
			queries = append(queries, n)
		}
		sort.Strings(queries)
	}

	formats := strings.Join(output.Formats, " ")
	drivers := strings.Join(backend.Drivers(), " ")

	switch shell {
	case "bash":
		var names []string
		for _, c := range root.Commands {
			if c.Name != "completion" {
				names = append(names, c.Name)
			}
		}
		return fmt.Sprintf(bashCompletionScript, strings.Join(names, " "), formats, drivers, strings.Join(queries, " ")), nil
	case "zsh":
		var cmds strings.Builder
		for _, c := range root.Commands {
			if c.Name == "completion" {
				continue
			}
			fmt.Fprintf(&cmds, "    '%s:%s'\n", c.Name, c.Usage)
		}
		return fmt.Sprintf(zshCompletionScript, strings.TrimRight(cmds.String(), "\n"), formats, drivers, strings.Join(queries, " ")), nil
	}
	return "", fmt.Errorf("unsupported shell %q: usage qcache completion [bash|zsh]", shell)
}

func CompletionCommandAction(_ context.Context, cmd *cli.Command) error {
	shell := cmd.Args().First()
	if shell == "" {
		// Try to detect from SHELL.
		sh := os.Getenv("SHELL")
		switch {
		case strings.HasSuffix(sh, "zsh"):
			shell = "zsh"
		case strings.HasSuffix(sh, "bash"):
			shell = "bash"
		}
	}

	script, err := CompletionScript(cmd.Root(), GetMeta(cmd), shell)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(writer(cmd), script)
	return err
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "qcache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
