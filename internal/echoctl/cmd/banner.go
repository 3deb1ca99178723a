package cmd

const bannerText = `
           _           _           _
  ___  ___| |__   ___ | |__   ___ | |_
 / _ \/ __| '_ \ / _ \| '_ \ / _ \| __|
|  __/ (__| | | | (_) | |_) | (_) | |_
 \___|\___|_| |_|\___/|_.__/ \___/ \__|
`

// Banner returns the CLI banner string.
func Banner() string {
	return bannerText
}
