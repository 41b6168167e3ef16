// Package fuzztests houses Go fuzz harnesses for the front end and the whole
// analysis pipeline. They look for panics and hangs on arbitrary input.
//
// Назначение: загружать байты в FileSet и прогонять их через лексер, парсер
// и, в самом тяжёлом варианте, через все задачи анализа.
//
// Не делает: генерацию корпусов, запись файлов, выполнение CLI.
package fuzztests
