package llm

import (
	"fmt"
	"time"
)

const systemPrompt = `Kamu adalah asisten toko untuk kasir dan pemilik toko kelontong.
Jawab dalam bahasa Indonesia, singkat dan langsung ke angka.
Gunakan tool untuk setiap angka penjualan, stok, atau laporan; jangan menebak.
Tanggal untuk tool ditulis YYYY-MM-DD. Nilai uang ditulis dalam format Rupiah, contoh Rp 12.500.
Jika data tidak cukup untuk menjawab, katakan data apa yang kurang.`

// SystemPromptWithContext adds the current date, and for interactive
// sessions a note that follow-up questions refer to earlier answers.
func SystemPromptWithContext(interactive bool) string {
	prompt := fmt.Sprintf("%s\nHari ini %s.", systemPrompt, time.Now().Format("2006-01-02 (Monday)"))
	if interactive {
		prompt += "\nIni percakapan lanjutan: pertanyaan berikutnya bisa merujuk jawaban sebelumnya."
	}
	return prompt
}
